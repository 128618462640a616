package service

import (
	"context"
	stderrs "errors"
	"fmt"
	"iter"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/olusolaa/sandbox-differ/internal/core/domain"
	"github.com/olusolaa/sandbox-differ/internal/core/ports"
	"github.com/olusolaa/sandbox-differ/internal/errors"
	"github.com/olusolaa/sandbox-differ/internal/structured"
	"github.com/olusolaa/sandbox-differ/internal/tree"
)

// TransitionHook observes every state change of a run.
type TransitionHook func(target domain.Target, from, to domain.RunState)

type Settings struct {
	FetcherType string
	// SinkTypes selects registered sinks; empty means all of them.
	SinkTypes          []string
	AcquisitionTimeout time.Duration
	KeepSnapshots      bool
	Concurrency        int
	Locations          structured.Locations
}

type Engine struct {
	fetcher  ports.TreeFetcher
	sinks    []ports.ReportSink
	store    ports.BaselineStore
	metadata ports.MetadataProvider
	hasher   *tree.Hasher
	prefs    *structured.PreferenceComparer
	dbs      *structured.DatabaseComparer
	settings Settings
	logger   ports.Logger

	locks *keyedMutex
	hook  TransitionHook
	now   func() time.Time
	newID func() string
}

var _ ports.Orchestrator = (*Engine)(nil)

type Option func(*Engine)

func WithTransitionHook(hook TransitionHook) Option {
	return func(e *Engine) { e.hook = hook }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

func NewEngine(
	registry *ComponentRegistry,
	store ports.BaselineStore,
	metadata ports.MetadataProvider,
	settings Settings,
	logger ports.Logger,
	opts ...Option,
) (*Engine, error) {
	if registry == nil {
		return nil, errors.New(errors.CodeInternal, "component registry cannot be nil")
	}
	if store == nil {
		return nil, errors.New(errors.CodeConfigValidation, "baseline store cannot be nil")
	}
	if metadata == nil {
		return nil, errors.New(errors.CodeConfigValidation, "metadata provider cannot be nil")
	}

	fetcher, err := registry.GetFetcher(settings.FetcherType)
	if err != nil {
		return nil, err
	}

	var sinks []ports.ReportSink
	if len(settings.SinkTypes) == 0 {
		sinks = registry.Sinks()
	} else {
		for _, name := range settings.SinkTypes {
			sink, err := registry.GetSink(name)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		}
	}
	if len(sinks) == 0 {
		return nil, errors.New(errors.CodeConfigValidation, "at least one report sink is required")
	}

	e := &Engine{
		fetcher:  fetcher,
		sinks:    sinks,
		store:    store,
		metadata: metadata,
		hasher:   tree.NewHasher(settings.Concurrency, logger),
		prefs:    structured.NewPreferenceComparer(settings.Locations.Preferences, logger),
		dbs:      structured.NewDatabaseComparer(settings.Locations.Databases, logger),
		settings: settings,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// run tracks the state machine of one invocation.
type run struct {
	engine *Engine
	target domain.Target
	state  domain.RunState
	logger ports.Logger
}

func (e *Engine) newRun(target domain.Target, kind string) *run {
	return &run{
		engine: e,
		target: target,
		state:  domain.StateInit,
		logger: e.logger.WithFields(map[string]any{"target": target.String(), "run": kind}),
	}
}

// advance moves to the next state unless the run has been cancelled.
func (r *run) advance(ctx context.Context, to domain.RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.set(to)
	return nil
}

func (r *run) set(to domain.RunState) {
	from := r.state
	r.state = to
	r.logger.Debugf(context.Background(), "%s -> %s", from, to)
	if r.engine.hook != nil {
		r.engine.hook(r.target, from, to)
	}
}

func (r *run) fail(ctx context.Context, err error) error {
	failedIn := r.state
	r.set(domain.StateFailed)
	if isContextErr(err) {
		r.logger.Warnf(ctx, "Run cancelled during %s: %v", failedIn, err)
	} else {
		r.logger.Errorf(ctx, err, "Run failed during %s", failedIn)
	}
	return err
}

func isContextErr(err error) bool {
	return stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded)
}

func invalidTarget(target domain.Target, err error) error {
	return errors.WrapUserFacing(err, errors.CodeValidation,
		fmt.Sprintf("%q is not a valid target name", target.String()),
		"Use the application identifier, e.g. com.example.app.")
}

func (e *Engine) HasBaseline(ctx context.Context, target domain.Target) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, invalidTarget(target, err)
	}
	return e.store.Exists(ctx, target)
}

// CreateBaseline captures the target's tree and stores it as its baseline.
func (e *Engine) CreateBaseline(ctx context.Context, req ports.CreateRequest) (*domain.Baseline, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, invalidTarget(req.Target, err)
	}
	unlock, err := e.locks.Lock(ctx, req.Target.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := e.newRun(req.Target, "create")
	r.logger.Infof(ctx, "Creating baseline from %s", req.SourcePath)

	// Refuse early so a conflict does not cost a full acquisition. The store
	// checks again when saving.
	if !req.Overwrite {
		exists, err := e.store.Exists(ctx, req.Target)
		if err != nil {
			return nil, r.fail(ctx, err)
		}
		if exists {
			return nil, r.fail(ctx, errors.NewUserFacing(errors.CodeBaselineConflict,
				fmt.Sprintf("a baseline for %s already exists", req.Target),
				"Confirm the overwrite (--force) or remove the existing baseline first."))
		}
	}

	if err := r.advance(ctx, domain.StateAcquireCurrent); err != nil {
		return nil, r.fail(ctx, err)
	}
	snapshot, fingerprints, err := e.acquire(ctx, r, req.SourcePath)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	defer e.releaseSnapshot(ctx, r, snapshot)

	if err := r.advance(ctx, domain.StateSave); err != nil {
		return nil, r.fail(ctx, err)
	}
	baseline, err := e.store.Save(ctx, ports.SaveRequest{
		Target:       req.Target,
		Fingerprints: fingerprints,
		Tree:         snapshot.Root,
		Metadata: domain.Metadata{
			CreatedAt:   e.now().UTC(),
			Environment: e.collectMetadata(ctx, r),
		},
		Overwrite: req.Overwrite,
	})
	if err != nil {
		return nil, r.fail(ctx, err)
	}

	r.set(domain.StateDone)
	r.logger.Infof(ctx, "Baseline created with %d files", len(baseline.Fingerprints))
	return baseline, nil
}

// Compare captures the target's current tree and reports how it differs from
// the stored baseline. The report is written to every sink before returning.
func (e *Engine) Compare(ctx context.Context, req ports.CompareRequest) (*domain.ComparisonReport, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, invalidTarget(req.Target, err)
	}
	unlock, err := e.locks.Lock(ctx, req.Target.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	r := e.newRun(req.Target, "compare")
	r.logger.Infof(ctx, "Comparing %s against baseline", req.SourcePath)

	if err := r.advance(ctx, domain.StateAcquireCurrent); err != nil {
		return nil, r.fail(ctx, err)
	}
	snapshot, current, err := e.acquire(ctx, r, req.SourcePath)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	defer e.releaseSnapshot(ctx, r, snapshot)

	if err := r.advance(ctx, domain.StateLoadBaseline); err != nil {
		return nil, r.fail(ctx, err)
	}
	baseline, err := e.store.Load(ctx, req.Target)
	if err != nil {
		if errors.Is(err, errors.CodeBaselineNotFound) {
			err = errors.WrapUserFacing(err, errors.CodeBaselineNotFound,
				fmt.Sprintf("no baseline exists for %s", req.Target),
				fmt.Sprintf("Create one first: sandbox-differ baseline create --target %s", req.Target))
		}
		return nil, r.fail(ctx, err)
	}

	if err := r.advance(ctx, domain.StateReconcile); err != nil {
		return nil, r.fail(ctx, err)
	}
	changes := tree.Diff(baseline.Fingerprints, current)
	r.logger.Debugf(ctx, "Tree reconciliation found %d changes", len(changes))

	if err := r.advance(ctx, domain.StateStructuredCompare); err != nil {
		return nil, r.fail(ctx, err)
	}
	var (
		prefs []domain.PreferenceChange
		dbs   []domain.DatabaseChange
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prefs, err = e.prefs.Compare(gctx, baseline.Tree, snapshot.Root, baseline.Fingerprints, current)
		return err
	})
	g.Go(func() error {
		var err error
		dbs, err = e.dbs.Compare(gctx, baseline.Fingerprints, current)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, r.fail(ctx, err)
	}

	if err := r.advance(ctx, domain.StateReport); err != nil {
		return nil, r.fail(ctx, err)
	}
	report := &domain.ComparisonReport{
		ID:                e.newID(),
		Target:            req.Target,
		CreatedAt:         e.now().UTC(),
		BaselineCreatedAt: baseline.Metadata.CreatedAt,
		Changes:           changes,
		Preferences:       prefs,
		Databases:         dbs,
	}
	for _, sink := range e.sinks {
		location, err := sink.Write(ctx, report)
		if err != nil {
			return nil, r.fail(ctx, err)
		}
		r.logger.Infof(ctx, "Report written by %s sink to %s", sink.Type(), location)
	}

	r.set(domain.StateDone)
	return report, nil
}

func (e *Engine) ListBaselines(ctx context.Context) iter.Seq2[domain.BaselineSummary, error] {
	return e.store.List(ctx)
}

func (e *Engine) RemoveBaseline(ctx context.Context, target domain.Target) error {
	if err := target.Validate(); err != nil {
		return invalidTarget(target, err)
	}
	unlock, err := e.locks.Lock(ctx, target.String())
	if err != nil {
		return err
	}
	defer unlock()
	return e.store.Remove(ctx, target)
}

// acquire fetches the source tree under the acquisition timeout and
// fingerprints it. The timeout covers only the fetch.
func (e *Engine) acquire(ctx context.Context, r *run, sourcePath string) (*ports.Snapshot, domain.FingerprintSet, error) {
	fetchCtx := ctx
	if e.settings.AcquisitionTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.settings.AcquisitionTimeout)
		defer cancel()
	}

	snapshot, err := e.fetcher.FetchTree(fetchCtx, sourcePath)
	if err != nil {
		if ctx.Err() == nil && stderrs.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			// The deadline wins over whatever code the fetcher attached.
			timeout := errors.NewUserFacing(errors.CodeTimeout,
				fmt.Sprintf("acquiring %s took longer than %s", sourcePath, e.settings.AcquisitionTimeout),
				"Check the device connection or raise acquisition.timeout.")
			timeout.WrappedError = err
			err = timeout
		}
		return nil, nil, err
	}
	if snapshot == nil || snapshot.Root == nil {
		return nil, nil, errors.New(errors.CodeInternal, fmt.Sprintf("%s fetcher returned no snapshot", e.fetcher.Type()))
	}

	fingerprints, err := e.hasher.Hash(ctx, snapshot.Root)
	if err != nil {
		e.releaseSnapshot(ctx, r, snapshot)
		return nil, nil, err
	}
	r.logger.Debugf(ctx, "Fingerprinted %d files", len(fingerprints))
	return snapshot, fingerprints, nil
}

func (e *Engine) releaseSnapshot(ctx context.Context, r *run, snapshot *ports.Snapshot) {
	if e.settings.KeepSnapshots {
		r.logger.Infof(ctx, "Keeping snapshot at %s", snapshot.Dir)
		return
	}
	if snapshot.Cleanup == nil {
		return
	}
	if err := snapshot.Cleanup(); err != nil {
		r.logger.Warnf(ctx, "Failed to remove snapshot %s: %v", snapshot.Dir, err)
	}
}

// collectMetadata never fails the run: a provider error is logged and every
// required field is recorded as unknown.
func (e *Engine) collectMetadata(ctx context.Context, r *run) map[string]string {
	env, err := e.metadata.Collect(ctx, r.target.String())
	if err != nil {
		r.logger.Warnf(ctx, "Metadata collection failed, recording unknown values: %v", err)
		env = nil
	}
	out := make(map[string]string, len(env)+len(domain.RequiredEnvironmentKeys))
	maps.Copy(out, env)
	for _, key := range domain.RequiredEnvironmentKeys {
		if out[key] == "" {
			out[key] = domain.UnknownValue
		}
	}
	return out
}
