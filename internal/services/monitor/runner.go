package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
)

type Config struct {
	Tick           time.Duration `mapstructure:"tick"`
	Interval       time.Duration `mapstructure:"interval"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Lease          LeaseConfig   `mapstructure:"lease"`
}

type LeaseConfig struct {
	Enable bool          `mapstructure:"enable"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Probe interface {
	Probe(ctx context.Context, c check.Check) (check.Result, error)
}

// Lease coordinates replicas. ok=false means another replica holds the key.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error)
}

// Runner is the scheduler loop. Each tick starts every due check that is not already
// in flight, up to MaxConcurrency concurrent probes. A tick never waits for probes.
type Runner struct {
	log    *zap.Logger
	reg    *Registry
	probe  Probe
	engine *Engine
	cfg    Config
	lease  Lease
	now    func() time.Time
	tracer trace.Tracer

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewRunner(log *zap.Logger, reg *Registry, probe Probe, engine *Engine, cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 20
	}
	if cfg.Lease.TTL <= 0 {
		cfg.Lease.TTL = time.Duration(check.MaxTimeoutSec)*time.Second + 5*time.Second
	}
	return &Runner{
		log:    log.With(zap.String("component", "monitor.runner")),
		reg:    reg,
		probe:  probe,
		engine: engine,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		tracer: otel.Tracer("monitor.runner"),
		sem:    make(chan struct{}, cfg.MaxConcurrency),
	}
}

func (r *Runner) WithLease(l Lease) *Runner {
	r.lease = l
	return r
}

// Run ticks until ctx is done, then waits for in-flight probes to finish.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	r.log.Info("scheduler started",
		zap.Duration("tick", r.cfg.Tick),
		zap.Duration("interval", r.cfg.Interval),
		zap.Int("max_concurrency", r.cfg.MaxConcurrency),
		zap.Int("checks", r.reg.Len()),
	)
	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("scheduler stopping; waiting for in-flight probes")
			r.Wait()
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// Wait blocks until every started probe has returned.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("scheduler tick panic", zap.Any("panic", p))
		}
	}()
	r.RunOnce(ctx)
}

// RunOnce evaluates the registry once and returns how many probes it started.
func (r *Runner) RunOnce(ctx context.Context) int {
	start := time.Now()
	now := r.now()

	ctx, span := r.tracer.Start(ctx, "monitor.tick")
	defer span.End()

	due := r.reg.DueForExecution(now, r.cfg.Interval)
	mDue.Add(float64(len(due)))

	started := 0
	for _, c := range due {
		c := c
		ok, reason := r.spawn(ctx, c.ID, func(ctx context.Context) { r.execute(ctx, c, now) })
		if !ok {
			mSkipped.WithLabelValues(reason).Inc()
			continue
		}
		r.reg.MarkAttempt(c.ID, now)
		started++
	}

	for _, c := range r.reg.WithPendingAlerts(now) {
		id := c.ID
		r.spawn(ctx, id, func(ctx context.Context) { r.engine.FlushPending(ctx, id) })
	}

	mDispatched.Add(float64(started))
	span.SetAttributes(
		attribute.Int("checks.due", len(due)),
		attribute.Int("checks.started", started),
	)
	if len(due) > 0 {
		r.log.Debug("tick", zap.Int("due", len(due)), zap.Int("started", started))
	}
	mTickDur.Observe(time.Since(start).Seconds())
	return started
}

// spawn runs job for check id in the bounded pool. It never blocks; when the check is
// in flight or the pool is full the check is skipped and stays due for the next tick.
func (r *Runner) spawn(ctx context.Context, id string, job func(context.Context)) (bool, string) {
	if !r.reg.TryAcquire(id) {
		return false, "in_flight"
	}
	select {
	case r.sem <- struct{}{}:
	default:
		r.reg.Release(id)
		return false, "saturated"
	}

	var release func(context.Context)
	if r.lease != nil {
		rel, ok, err := r.lease.Acquire(ctx, "check:"+id, r.cfg.Lease.TTL)
		if err != nil || !ok {
			<-r.sem
			r.reg.Release(id)
			if err != nil {
				r.log.Warn("lease acquire", zap.String("check_id", id), zap.Error(err))
				return false, "lease_error"
			}
			return false, "leased"
		}
		release = rel
	}

	// probes outlive a shutdown signal; each is bounded by its own timeout
	workCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	mInFlight.Inc()
	go func() {
		defer r.wg.Done()
		defer mInFlight.Dec()
		defer func() { <-r.sem }()
		defer r.reg.Release(id)
		if release != nil {
			defer release(workCtx)
		}
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("probe job panic", zap.String("check_id", id), zap.String("panic", fmt.Sprint(p)))
			}
		}()
		job(workCtx)
	}()
	return true, ""
}

func (r *Runner) execute(ctx context.Context, c check.Check, at time.Time) {
	ctx, span := r.tracer.Start(ctx, "monitor.probe", trace.WithAttributes(
		attribute.String("check.id", c.ID),
		attribute.String("check.target", c.Target()),
	))
	defer span.End()

	res, err := r.probe.Probe(ctx, c)
	if err != nil {
		span.RecordError(err)
		if domain.IsConfigError(err) {
			mOutcomes.WithLabelValues("config_error").Inc()
			r.log.Warn("check misconfigured", zap.String("check_id", c.ID), zap.Error(err))
			if err := r.engine.RecordConfigError(ctx, c.ID, err, at); err != nil {
				r.log.Error("record config error", zap.String("check_id", c.ID), zap.Error(err))
			}
			return
		}
		r.log.Error("probe failed", zap.String("check_id", c.ID), zap.Error(err))
		return
	}

	mOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	mProbeLatency.Observe(float64(res.LatencyMs) / 1000)
	span.SetAttributes(attribute.String("probe.outcome", string(res.Outcome)), attribute.Int("http.status_code", res.StatusCode))

	// errors are logged by the engine; the attempt mark keeps the check off until the next interval
	_, _ = r.engine.Apply(ctx, c.ID, res, at)
}
