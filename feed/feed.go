// Package feed runs the profile pipeline whenever a new link profile
// arrives and hands completed visualizations to subscribers. Results of a
// request that was superseded by a newer one are dropped, so subscribers
// only ever move forward.
package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/linkprofile/core"
	"github.com/signalsfoundry/linkprofile/internal/logging"
	"github.com/signalsfoundry/linkprofile/internal/observability"
	"github.com/signalsfoundry/linkprofile/model"
)

const tracerName = "github.com/signalsfoundry/linkprofile/feed"

// ErrAssemblerPanic wraps a panic raised while assembling a profile.
var ErrAssemblerPanic = errors.New("profile assembler panicked")

// AssembleFunc turns a profile into a visualization. core.Assemble is the
// default.
type AssembleFunc func(model.LinkProfile, model.ClutterCatalog) (model.ProfileVisualization, error)

// MetricsRecorder receives per-run measurements.
// *observability.PipelineCollector satisfies it.
type MetricsRecorder interface {
	ObserveAssembly(outcome string, samples, series int, elapsed time.Duration)
	ObserveStale()
}

// Update is the outcome of one pipeline run.
type Update struct {
	// Seq orders requests; a higher Seq was requested later.
	Seq   uint64
	RunID string

	Visualization model.ProfileVisualization
	// Err is set when the profile was rejected. Visualization then carries
	// the diagnostic.
	Err error

	Samples   int
	Elapsed   time.Duration
	Completed time.Time
	// Stale marks a result that finished after a newer one was delivered.
	Stale bool
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger attaches a logger. The default drops everything.
func WithLogger(log logging.Logger) Option {
	return func(f *Feed) {
		if log != nil {
			f.log = log
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(f *Feed) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithAssembler replaces the pipeline entry point.
func WithAssembler(fn AssembleFunc) Option {
	return func(f *Feed) {
		if fn != nil {
			f.assemble = fn
		}
	}
}

// WithTracerProvider creates run spans from tp instead of the global
// OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Feed) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock overrides the time source used for Completed and Elapsed.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		if now != nil {
			f.now = now
		}
	}
}

// Feed is safe for concurrent use.
type Feed struct {
	assemble AssembleFunc
	log      logging.Logger
	metrics  MetricsRecorder
	now      func() time.Time
	tracer   trace.Tracer

	seq      atomic.Uint64
	inflight sync.WaitGroup

	// deliverMu serialises deliveries so listeners observe increasing Seq.
	deliverMu sync.Mutex

	mu        sync.RWMutex
	delivered uint64
	latest    *Update
	listeners []func(Update)
}

// New constructs a Feed.
func New(opts ...Option) *Feed {
	f := &Feed{
		assemble: core.Assemble,
		log:      logging.Noop(),
		metrics:  noopRecorder{},
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe registers fn to receive every delivered update. Listeners run
// on the goroutine that completed the run and must not call Process.
func (f *Feed) Subscribe(fn func(Update)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Latest returns the most recently delivered update.
func (f *Feed) Latest() (Update, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return Update{}, false
	}
	return *f.latest, true
}

// Process assembles p on the calling goroutine and delivers the result.
func (f *Feed) Process(ctx context.Context, p model.LinkProfile, catalog model.ClutterCatalog) Update {
	seq := f.seq.Add(1)
	u := f.run(ctx, seq, p, catalog)
	u.Stale = !f.deliver(ctx, u)
	return u
}

// Publish assembles p on a new goroutine. The returned channel yields the
// update, stale or not, and is then closed.
func (f *Feed) Publish(ctx context.Context, p model.LinkProfile, catalog model.ClutterCatalog) <-chan Update {
	seq := f.seq.Add(1)
	out := make(chan Update, 1)
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		defer close(out)
		u := f.run(ctx, seq, p, catalog)
		u.Stale = !f.deliver(ctx, u)
		out <- u
	}()
	return out
}

// Wait blocks until every published run has finished.
func (f *Feed) Wait() {
	f.inflight.Wait()
}

func (f *Feed) run(ctx context.Context, seq uint64, p model.LinkProfile, catalog model.ClutterCatalog) (u Update) {
	if ctx == nil {
		ctx = context.Background()
	}
	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx, span := f.tracer.Start(ctx, "feed.Assemble", trace.WithAttributes(
		attribute.Int64("profile.seq", int64(seq)),
		attribute.Int("profile.samples", p.N()),
		attribute.Int("profile.catalog_size", len(catalog)),
	))
	defer span.End()

	start := f.now()
	u = Update{Seq: seq, RunID: runID, Samples: p.N()}

	defer func() {
		if r := recover(); r != nil {
			u.Err = fmt.Errorf("%w: %v", ErrAssemblerPanic, r)
			u.Visualization = model.ProfileVisualization{Diagnostic: u.Err.Error()}
			f.finish(ctx, span, &u, start)
		}
	}()

	u.Visualization, u.Err = f.assemble(p, catalog)
	f.finish(ctx, span, &u, start)
	return u
}

func (f *Feed) finish(ctx context.Context, span trace.Span, u *Update, start time.Time) {
	u.Completed = f.now()
	u.Elapsed = u.Completed.Sub(start)

	outcome := observability.OutcomeOK
	switch {
	case u.Err != nil:
		outcome = observability.OutcomeMalformed
		span.RecordError(u.Err)
		span.SetStatus(codes.Error, u.Err.Error())
		f.log.Warn(ctx, "profile rejected",
			logging.Uint64("seq", u.Seq),
			logging.Int("samples", u.Samples),
			logging.Err(u.Err),
		)
	case u.Visualization.Empty():
		outcome = observability.OutcomeEmpty
		f.log.Info(ctx, "profile produced no series",
			logging.Uint64("seq", u.Seq),
			logging.String("diagnostic", u.Visualization.Diagnostic),
		)
	default:
		f.log.Debug(ctx, "profile assembled",
			logging.Uint64("seq", u.Seq),
			logging.Int("samples", u.Samples),
			logging.Int("series", len(u.Visualization.Series)),
			logging.Any("elapsed", u.Elapsed),
		)
	}
	for _, w := range u.Visualization.Warnings {
		f.log.Warn(ctx, "profile input corrected", logging.Uint64("seq", u.Seq), logging.String("warning", w))
	}

	span.SetAttributes(
		attribute.String("viz.outcome", outcome),
		attribute.Int("viz.series", len(u.Visualization.Series)),
		attribute.Int("viz.warnings", len(u.Visualization.Warnings)),
	)
	f.metrics.ObserveAssembly(outcome, u.Samples, len(u.Visualization.Series), u.Elapsed)
}

// deliver publishes u unless a newer update was already delivered.
func (f *Feed) deliver(ctx context.Context, u Update) bool {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	if u.Seq <= f.delivered {
		newer := f.delivered
		f.mu.Unlock()
		f.metrics.ObserveStale()
		f.log.Debug(ctx, "dropping superseded result",
			logging.Uint64("seq", u.Seq),
			logging.Uint64("delivered_seq", newer),
		)
		return false
	}
	f.delivered = u.Seq
	latest := u
	f.latest = &latest
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(u)
	}
	return true
}

type noopRecorder struct{}

func (noopRecorder) ObserveAssembly(string, int, int, time.Duration) {}
func (noopRecorder) ObserveStale()                                  {}
