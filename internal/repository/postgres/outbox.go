package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/NordCoder/Uptimer/internal/domain/outbox"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

// OutboxRepo keeps pending alert events in the outbox table. Rows are claimed
// with SKIP LOCKED so several relays can share one table.
type OutboxRepo struct{ db *DB }

func NewOutboxRepo(db *DB) *OutboxRepo { return &OutboxRepo{db: db} }

const (
	sqlOutboxInsert = `
INSERT INTO outbox (idempotency_key, kind, data, traceparent, tracestate, baggage)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (idempotency_key) DO NOTHING`

	sqlOutboxClaim = `
UPDATE outbox o
   SET status = 'IN_PROGRESS', updated_at = now()
  FROM (
        SELECT idempotency_key
          FROM outbox
         WHERE status = 'CREATED'
            OR (status = 'IN_PROGRESS' AND updated_at < now() - make_interval(secs => $2))
         ORDER BY created_at
         LIMIT $1
           FOR UPDATE SKIP LOCKED
       ) picked
 WHERE o.idempotency_key = picked.idempotency_key
RETURNING o.idempotency_key, o.kind, o.data, o.status, o.created_at, o.updated_at,
          o.traceparent, o.tracestate, o.baggage`

	sqlOutboxDone = `
UPDATE outbox SET status = 'SUCCESS', updated_at = now()
 WHERE idempotency_key = ANY($1)`
)

// Enqueue stores the event together with the caller's trace context.
func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	var tc outbox.Trace
	otel.GetTextMapPropagator().Inject(ctx, &tc)

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Pool.Exec(ctx, sqlOutboxInsert, key, kind, data, tc.Parent, tc.State, tc.Baggage)
	if err != nil {
		return fmt.Errorf("outbox: enqueue %s: %w", key, err)
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("outbox: batch must be positive")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, sqlOutboxClaim, batch, inProgressTTL.Seconds())
	if err != nil {
		return nil, fmt.Errorf("outbox: claim: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Message, error) {
		var m outbox.Message
		err := row.Scan(&m.IdempotencyKey, &m.Kind, &m.Data, &m.Status, &m.CreatedAt, &m.UpdatedAt,
			&m.Trace.Parent, &m.Trace.State, &m.Trace.Baggage)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: scan claimed: %w", err)
	}
	return msgs, nil
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()
	if _, err := r.db.Pool.Exec(ctx, sqlOutboxDone, keys); err != nil {
		return fmt.Errorf("outbox: mark %d delivered: %w", len(keys), err)
	}
	return nil
}
