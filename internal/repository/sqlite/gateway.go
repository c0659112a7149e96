package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

var _ record.Gateway = (*Gateway)(nil)

type Gateway struct {
	db      *sql.DB
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *Gateway) Get(ctx context.Context, kind record.Kind, id string) ([]byte, error) {
	query, args, err := g.builder.Select("data").
		From("records").
		Where(squirrel.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Kind: string(kind), ID: id, Err: err}
	}

	var data []byte
	if err := g.db.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, &domain.StorageError{Op: "get", Kind: string(kind), ID: id, Err: err}
	}
	return data, nil
}

func (g *Gateway) Put(ctx context.Context, kind record.Kind, id string, data []byte) error {
	query, args, err := g.builder.Insert("records").
		Columns("kind", "id", "data", "updated_at").
		Values(string(kind), id, data, g.now()).
		Suffix("ON CONFLICT(kind, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, kind record.Kind, id string) error {
	query, args, err := g.builder.Delete("records").
		Where(squirrel.Eq{"kind": string(kind), "id": id}).
		ToSql()
	if err != nil {
		return &domain.StorageError{Op: "delete", Kind: string(kind), ID: id, Err: err}
	}
	if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "delete", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) ListAll(ctx context.Context, kind record.Kind) ([]record.Record, error) {
	query, args, err := g.builder.Select("id", "data").
		From("records").
		Where(squirrel.Eq{"kind": string(kind)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}
	return out, nil
}
