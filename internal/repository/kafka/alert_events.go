package kafka

import (
	"context"

	"github.com/NordCoder/Uptimer/internal/domain/alert"
)

type AlertEventsKafka struct {
	p *Producer
}

func NewAlertEventsKafka(p *Producer) *AlertEventsKafka { return &AlertEventsKafka{p: p} }

// PublishAlert keys by check id so transitions of one check stay ordered within a partition.
func (e *AlertEventsKafka) PublishAlert(ctx context.Context, a alert.Alert) error {
	return e.p.PublishJSON(ctx, []byte(a.CheckID), a)
}

// Send lets the producer act as an alert.Dispatcher directly.
func (e *AlertEventsKafka) Send(ctx context.Context, a alert.Alert) error {
	return e.PublishAlert(ctx, a)
}
