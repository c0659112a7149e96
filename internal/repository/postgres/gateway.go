package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/jackc/pgx/v5"
)

var _ record.Gateway = (*Gateway)(nil)

// Gateway stores every record kind as a JSONB document in one table.
type Gateway struct{ db *DB }

func NewGateway(db *DB) *Gateway { return &Gateway{db: db} }

const (
	qRecordGet = `
SELECT data
FROM records
WHERE kind = $1 AND id = $2;`

	qRecordPut = `
INSERT INTO records (kind, id, data, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (kind, id) DO UPDATE
SET data = EXCLUDED.data, updated_at = now();`

	qRecordDelete = `
DELETE FROM records
WHERE kind = $1 AND id = $2;`

	qRecordList = `
SELECT id, data
FROM records
WHERE kind = $1
ORDER BY id;`
)

func (g *Gateway) Get(ctx context.Context, kind record.Kind, id string) ([]byte, error) {
	ctx, cancel := g.db.withTimeout(ctx)
	defer cancel()

	var data []byte
	if err := g.db.Pool.QueryRow(ctx, qRecordGet, string(kind), id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, &domain.StorageError{Op: "get", Kind: string(kind), ID: id, Err: err}
	}
	return data, nil
}

func (g *Gateway) Put(ctx context.Context, kind record.Kind, id string, data []byte) error {
	ctx, cancel := g.db.withTimeout(ctx)
	defer cancel()

	if _, err := g.db.Pool.Exec(ctx, qRecordPut, string(kind), id, data); err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, kind record.Kind, id string) error {
	ctx, cancel := g.db.withTimeout(ctx)
	defer cancel()

	if _, err := g.db.Pool.Exec(ctx, qRecordDelete, string(kind), id); err != nil {
		return &domain.StorageError{Op: "delete", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) ListAll(ctx context.Context, kind record.Kind) ([]record.Record, error) {
	ctx, cancel := g.db.withTimeout(ctx)
	defer cancel()

	rows, err := g.db.Pool.Query(ctx, qRecordList, string(kind))
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}
	return out, nil
}
