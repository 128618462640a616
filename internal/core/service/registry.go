package service

import (
	"fmt"
	"sync"

	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

type ComponentRegistry struct {
	mu        sync.RWMutex
	fetchers  map[string]ports.TreeFetcher
	sinks     map[string]ports.ReportSink
	sinkOrder []string
}

func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		fetchers: make(map[string]ports.TreeFetcher),
		sinks:    make(map[string]ports.ReportSink),
	}
}

func (r *ComponentRegistry) RegisterFetcher(fetcher ports.TreeFetcher) error {
	if fetcher == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil tree fetcher")
	}
	fetcherType := fetcher.Type()
	if fetcherType == "" {
		return errors.New(errors.CodeInternal, "tree fetcher type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fetchers[fetcherType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("tree fetcher type '%s' already registered", fetcherType))
	}
	r.fetchers[fetcherType] = fetcher
	return nil
}

func (r *ComponentRegistry) GetFetcher(fetcherType string) (ports.TreeFetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fetcher, exists := r.fetchers[fetcherType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("tree fetcher type '%s' not found", fetcherType))
	}
	return fetcher, nil
}

func (r *ComponentRegistry) RegisterSink(sink ports.ReportSink) error {
	if sink == nil {
		return errors.New(errors.CodeInternal, "attempted to register nil report sink")
	}
	sinkType := sink.Type()
	if sinkType == "" {
		return errors.New(errors.CodeInternal, "report sink type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[sinkType]; exists {
		return errors.New(errors.CodeInternal, fmt.Sprintf("report sink type '%s' already registered", sinkType))
	}
	r.sinks[sinkType] = sink
	r.sinkOrder = append(r.sinkOrder, sinkType)
	return nil
}

func (r *ComponentRegistry) GetSink(sinkType string) (ports.ReportSink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, exists := r.sinks[sinkType]
	if !exists {
		return nil, errors.New(errors.CodeConfigValidation, fmt.Sprintf("report sink type '%s' not found", sinkType))
	}
	return sink, nil
}

// Sinks returns every registered sink in registration order.
func (r *ComponentRegistry) Sinks() []ports.ReportSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.ReportSink, 0, len(r.sinkOrder))
	for _, name := range r.sinkOrder {
		out = append(out, r.sinks[name])
	}
	return out
}
