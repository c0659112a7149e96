package monitor

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/obs"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

type CheckWriter interface {
	Put(ctx context.Context, c check.Check) error
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Decision describes what Apply did to a check.
type Decision struct {
	From    check.State
	To      check.State
	Changed bool
	Alert   bool
	Dropped bool
}

// Engine turns probe results into persisted state and alerts. It is the only writer
// of a check's observed state.
type Engine struct {
	log        *zap.Logger
	reg        *Registry
	checks     CheckWriter
	users      UserReader
	dispatcher alert.Dispatcher
	tracer     trace.Tracer
	now        func() time.Time

	// flushBackoff spaces out redelivery of pending alerts after a failed attempt.
	flushBackoff retry.Backoff
}

func NewEngine(log *zap.Logger, reg *Registry, checks CheckWriter, users UserReader, d alert.Dispatcher) *Engine {
	return &Engine{
		log:        log.With(zap.String("component", "monitor.engine")),
		reg:        reg,
		checks:     checks,
		users:      users,
		dispatcher: d,
		tracer:     otel.Tracer("monitor.engine"),
		now:        func() time.Time { return time.Now().UTC() },
		flushBackoff: retry.ExpoJitter{
			Base:   10 * time.Second,
			Max:    5 * time.Minute,
			Jitter: 0.2,
		},
	}
}

// Apply records one probe result observed at time at. The new state is persisted
// before any alert is dispatched; a storage failure means no alert. A check removed
// while its probe was running is left removed.
func (e *Engine) Apply(ctx context.Context, id string, res check.Result, at time.Time) (Decision, error) {
	ctx, span := e.tracer.Start(ctx, "monitor.apply", trace.WithAttributes(
		attribute.String("check.id", id),
		attribute.String("probe.outcome", string(res.Outcome)),
	))
	defer span.End()

	var d Decision
	updated, err := e.reg.Mutate(ctx, id, func(c *check.Check) error {
		next, changed, alerting := check.Next(c.State, res.Outcome)
		d = Decision{From: c.State, To: next, Changed: changed, Alert: alerting}

		r := res
		c.LastResult = &r
		c.LastChecked = at
		c.ConfigError = ""
		if changed {
			c.State = next
			c.LastChanged = at
		}
		if alerting {
			c.Pending = append(c.Pending, check.Transition{
				Key: alert.Key(c.ID, at), From: d.From, To: next, At: at,
			})
		}
		return nil
	}, e.checks.Put)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			mDropped.Inc()
			obs.WithTrace(ctx, e.log).Info("check removed during probe; result dropped", zap.String("check_id", id))
			return Decision{Dropped: true}, nil
		}
		mStorageErrors.Inc()
		span.RecordError(err)
		obs.WithTrace(ctx, e.log).Error("persist probe result", zap.String("check_id", id), zap.Error(err))
		return Decision{}, err
	}

	if d.Changed {
		mTransitions.WithLabelValues(string(d.From), string(d.To)).Inc()
	}
	if d.Alert {
		obs.WithTrace(ctx, e.log).Info("state changed",
			zap.String("check_id", id), zap.String("from", string(d.From)), zap.String("to", string(d.To)))
	}
	if len(updated.Pending) > 0 {
		e.flush(ctx, updated)
	}
	return d, nil
}

// RecordConfigError marks a check as evaluated without touching its state.
func (e *Engine) RecordConfigError(ctx context.Context, id string, cause error, at time.Time) error {
	_, err := e.reg.Mutate(ctx, id, func(c *check.Check) error {
		c.LastChecked = at
		c.ConfigError = cause.Error()
		return nil
	}, e.checks.Put)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// FlushPending retries delivery of persisted but undelivered transitions.
func (e *Engine) FlushPending(ctx context.Context, id string) {
	c, ok := e.reg.Get(id)
	if !ok || len(c.Pending) == 0 {
		return
	}
	e.flush(ctx, c)
}

// flush delivers and updates the retry delay of the check's pending alerts.
func (e *Engine) flush(ctx context.Context, c check.Check) {
	if e.deliver(ctx, c) {
		e.reg.FlushSucceeded(c.ID)
		return
	}
	e.reg.DeferFlush(c.ID, e.now(), e.flushBackoff.Next)
}

// deliver dispatches pending transitions in order and stops at the first failure so
// alerts of one check are never reordered. It reports whether all of them went out.
func (e *Engine) deliver(ctx context.Context, c check.Check) bool {
	log := obs.WithTrace(ctx, e.log).With(zap.String("check_id", c.ID))

	dest := ""
	if u, err := e.users.GetByID(ctx, c.OwnerID); err == nil {
		dest = u.AlertDestination()
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn("lookup owner for alert", zap.Error(err))
		return false
	}

	for _, t := range c.Pending {
		status := &check.AlertStatus{Key: t.Key, From: t.From, To: t.To, At: t.At}
		var sendErr error
		if dest == "" {
			// owner is gone; nothing to deliver to
			log.Warn("alert has no destination", zap.String("key", t.Key))
		} else {
			sendErr = e.dispatcher.Send(ctx, alert.New(c, t, dest))
		}

		if sendErr != nil {
			derr := &domain.DispatchError{Destination: dest, Key: t.Key, Err: sendErr}
			mAlerts.WithLabelValues("failed").Inc()
			log.Error("alert dispatch failed", zap.Error(derr))
			status.Error = sendErr.Error()
			e.recordAlert(ctx, c.ID, status, "")
			return false
		}

		status.Delivered = dest != ""
		if status.Delivered {
			mAlerts.WithLabelValues("sent").Inc()
		} else {
			mAlerts.WithLabelValues("no_destination").Inc()
		}
		if !e.recordAlert(ctx, c.ID, status, t.Key) {
			return false
		}
	}
	return true
}

// recordAlert stores the last alert status and, when key is set, drops that transition
// from the pending list. It reports whether the write succeeded.
func (e *Engine) recordAlert(ctx context.Context, id string, status *check.AlertStatus, key string) bool {
	_, err := e.reg.Mutate(ctx, id, func(c *check.Check) error {
		c.LastAlert = status
		if key != "" {
			out := c.Pending[:0]
			for _, p := range c.Pending {
				if p.Key != key {
					out = append(out, p)
				}
			}
			c.Pending = out
			if len(c.Pending) == 0 {
				c.Pending = nil
			}
		}
		return nil
	}, e.checks.Put)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		mStorageErrors.Inc()
		e.log.Error("record alert status", zap.String("check_id", id), zap.Error(err))
		return false
	}
	return err == nil
}
