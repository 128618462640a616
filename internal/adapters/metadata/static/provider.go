package static

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
)

// Provider reports environment facts known up front: the configured metadata
// map overlaid with values given on the command line.
type Provider struct {
	values map[string]string
}

var _ ports.MetadataProvider = (*Provider)(nil)

func New(configured, overrides map[string]string) *Provider {
	values := make(map[string]string, len(configured)+len(overrides))
	maps.Copy(values, configured)
	maps.Copy(values, overrides)
	return &Provider{values: values}
}

// Collect returns a fresh copy of the known facts. Required keys without a
// value are filled with domain.UnknownValue.
func (p *Provider) Collect(ctx context.Context, target string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := maps.Clone(p.values)
	if out == nil {
		out = make(map[string]string, len(domain.RequiredEnvironmentKeys))
	}
	for _, key := range domain.RequiredEnvironmentKeys {
		if strings.TrimSpace(out[key]) == "" {
			out[key] = domain.UnknownValue
		}
	}
	return out, nil
}

// ParsePairs turns repeated key=value flags into a map. Later pairs win.
func ParsePairs(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewUserFacing(errors.CodeValidation,
				fmt.Sprintf("invalid metadata %q", pair),
				"Pass metadata as key=value, e.g. --meta device=pixel-7.")
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}
