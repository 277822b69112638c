package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
	"github.com/couchcryptid/meteo-etl-service/internal/observability"
)

const notifyTimeout = 10 * time.Second

// Extractor fetches one forecast document from the source.
type Extractor interface {
	Fetch(ctx context.Context) (domain.ForecastResponse, error)
}

// Transformer reshapes a forecast document into rows.
type Transformer interface {
	Transform(ctx context.Context, resp domain.ForecastResponse) (domain.ForecastTable, error)
}

// Loader persists a table and returns where it was written.
type Loader interface {
	Load(ctx context.Context, table domain.ForecastTable) (domain.StorageKey, error)
}

// Notifier announces completed runs. Failures do not fail the run.
type Notifier interface {
	Notify(ctx context.Context, report domain.RunReport) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithNotifier publishes a notification after each successful run.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithClock sets the clock used for run timestamps and stage durations.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// Pipeline orchestrates one extract-transform-load run per RunOnce call.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	notifier    Notifier
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu      sync.Mutex
	lastErr error
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, l Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns an error while the most recent run has failed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr != nil {
		return fmt.Errorf("last run failed: %w", p.lastErr)
	}
	return nil
}

// RunOnce executes fetch, reshape and persist in order. The first failing
// stage aborts the run and its error is returned unchanged; later stages
// are not invoked. A successful run has written exactly one object.
//
// Cancellation of ctx is ignored once the run has started. Each stage is
// bounded by its own timeout instead.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.RunReport, error) {
	ctx = context.WithoutCancel(ctx)

	report := domain.RunReport{
		ID:        uuid.NewString(),
		StartedAt: p.clock.Now().UTC(),
	}
	logger := p.logger.With("run_id", report.ID)

	p.metrics.RunInProgress.Inc()
	defer p.metrics.RunInProgress.Dec()

	logger.Info("run started")

	start := p.clock.Now()
	resp, err := p.extractor.Fetch(ctx)
	p.observe("fetch", start)
	if err != nil {
		return report, p.fail(logger, "fetch", err)
	}

	start = p.clock.Now()
	table, err := p.transformer.Transform(ctx, resp)
	p.observe("reshape", start)
	if err != nil {
		return report, p.fail(logger, "reshape", err)
	}

	start = p.clock.Now()
	key, err := p.loader.Load(ctx, table)
	p.observe("persist", start)
	if err != nil {
		return report, p.fail(logger, "persist", err)
	}

	report.Key = key
	report.URI = key.URI()
	report.Rows = table.Len()
	report.FinishedAt = p.clock.Now().UTC()

	p.succeed(report)
	logger.Info("run completed",
		"uri", report.URI,
		"rows", report.Rows,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	p.notify(ctx, logger, report)
	return report, nil
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(p.clock.Since(start).Seconds())
}

func (p *Pipeline) fail(logger *slog.Logger, stage string, err error) error {
	kind := domain.KindOf(err)
	p.metrics.RunsTotal.WithLabelValues(kind).Inc()

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	logger.Error("run failed", "stage", stage, "kind", kind, "error", err)
	return err
}

func (p *Pipeline) succeed(report domain.RunReport) {
	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RowsPersisted.Add(float64(report.Rows))
	p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))

	p.mu.Lock()
	p.lastErr = nil
	p.mu.Unlock()
}

// notify publishes the run report after the object is committed.
func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, report domain.RunReport) {
	if p.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := p.notifier.Notify(nctx, report); err != nil {
		p.metrics.NotifyFailures.Inc()
		logger.Warn("run notification failed", "error", err)
	}
}
