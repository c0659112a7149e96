package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/outbox"
)

var _ alert.Dispatcher = (*Sink)(nil)

// Sink dispatches alerts by enqueueing them; the alert key doubles as the idempotency key.
type Sink struct {
	repo outbox.Repository
}

func NewSink(repo outbox.Repository) *Sink { return &Sink{repo: repo} }

func (s *Sink) Send(ctx context.Context, a alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return s.repo.Enqueue(ctx, a.Key, outbox.KindAlert, data)
}
