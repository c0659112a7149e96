package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain/outbox"
	"github.com/NordCoder/Uptimer/internal/obs"
)

type Config struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

var (
	mRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uptimer", Subsystem: "outbox",
		Name: "relayed_total", Help: "Outbox messages handled, by result.",
	}, []string{"result"})
	mBatch = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "uptimer", Subsystem: "outbox",
		Name: "batch_size", Help: "Messages picked per batch.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})
	mBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "uptimer", Subsystem: "outbox",
		Name: "batch_duration_seconds", Help: "Time to pick, relay and mark one batch.",
		Buckets: prometheus.DefBuckets,
	})
)

// Runner relays enqueued messages to their kind handler. Messages that fail stay
// IN_PROGRESS and are picked again once InProgressTTL has passed, so delivery is
// at least once; handlers must tolerate duplicates.
type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler
	cfg      Config
	tracer   trace.Tracer
	prop     propagation.TextMapPropagator
}

func NewOutboxRunner(log *zap.Logger, repo outbox.Repository, dispatch outbox.GlobalHandler, cfg Config) *Runner {
	cfg.Workers = max(cfg.Workers, 1)
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.WaitTime <= 0 {
		cfg.WaitTime = time.Second
	}
	if cfg.InProgressTTL <= 0 {
		cfg.InProgressTTL = time.Minute
	}
	return &Runner{
		log:      log.With(zap.String("component", "outbox.runner")),
		repo:     repo,
		dispatch: dispatch,
		cfg:      cfg,
		tracer:   otel.Tracer("outbox.runner"),
		prop:     otel.GetTextMapPropagator(),
	}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for range r.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// worker drains full batches back to back and sleeps WaitTime only when the queue
// looked empty.
func (r *Runner) worker(ctx context.Context) {
	r.log.Debug("outbox worker started", zap.Duration("wait", r.cfg.WaitTime))
	t := time.NewTimer(r.cfg.WaitTime)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		for ctx.Err() == nil {
			n, err := r.RunOnce(ctx)
			if err != nil || n < r.cfg.BatchSize {
				break
			}
		}
		t.Reset(r.cfg.WaitTime)
	}
}

// RunOnce picks one batch, relays it and marks the successes. It returns how many
// messages were picked.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "outbox.batch", trace.WithAttributes(
		attribute.Int("batch.limit", r.cfg.BatchSize),
	))
	defer span.End()
	defer func() { mBatchDuration.Observe(time.Since(start).Seconds()) }()

	msgs, err := r.repo.PickBatch(ctx, r.cfg.BatchSize, r.cfg.InProgressTTL)
	if err != nil {
		span.RecordError(err)
		obs.WithTrace(ctx, r.log).Warn("outbox pick", zap.Error(err))
		return 0, err
	}
	mBatch.Observe(float64(len(msgs)))
	if len(msgs) == 0 {
		return 0, nil
	}

	done := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if r.relay(ctx, m) {
			done = append(done, m.IdempotencyKey)
		}
	}
	if err := r.repo.MarkSuccess(ctx, done); err != nil {
		span.RecordError(err)
		obs.WithTrace(ctx, r.log).Error("outbox mark success", zap.Int("count", len(done)), zap.Error(err))
		return len(msgs), err
	}
	return len(msgs), nil
}

// relay runs the handler under the trace context captured at enqueue time.
func (r *Runner) relay(ctx context.Context, m outbox.Message) bool {
	parent := r.prop.Extract(ctx, &m.Trace)
	ctx, span := r.tracer.Start(parent, "outbox.relay", trace.WithAttributes(
		attribute.String("outbox.key", m.IdempotencyKey),
		attribute.String("outbox.kind", m.Kind.String()),
	))
	defer span.End()
	log := obs.WithTrace(ctx, r.log).With(zap.String("key", m.IdempotencyKey))

	handler, err := r.dispatch(m.Kind)
	if err == nil {
		err = handler(ctx, m.Data)
	}
	if err != nil {
		span.RecordError(err)
		mRelayed.WithLabelValues("error").Inc()
		log.Warn("outbox relay failed; will retry after ttl", zap.Int("kind", int(m.Kind)), zap.Error(err))
		return false
	}
	mRelayed.WithLabelValues("ok").Inc()
	return true
}
