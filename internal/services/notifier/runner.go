package notifier

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/domain/alert"
	kafkax "github.com/NordCoder/Uptimer/internal/repository/kafka"
)

var mConsumed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "notifier_messages_consumed_total", Help: "Alert events consumed",
})

type Consumer interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Runner struct {
	log  *zap.Logger
	cons Consumer
	h    *Handler
}

func NewRunner(log *zap.Logger, cons Consumer, h *Handler) *Runner {
	return &Runner{log: log.With(zap.String("component", "notifier.runner")), cons: cons, h: h}
}

func (r *Runner) Handler() kafkax.Handler {
	return kafkax.JSONHandler(func(ctx context.Context, _ []byte, a alert.Alert) error {
		mConsumed.Inc()
		return r.h.HandleAlert(ctx, a)
	})
}

func (r *Runner) Run(ctx context.Context) error {
	if err := r.cons.Consume(ctx, r.Handler()); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
