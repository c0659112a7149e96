package records

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

func getJSON(ctx context.Context, g record.Gateway, kind record.Kind, id string, v any) error {
	data, err := g.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &domain.StorageError{Op: "decode", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func putJSON(ctx context.Context, g record.Gateway, kind record.Kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", kind, id, err)
	}
	return g.Put(ctx, kind, id, data)
}

func listJSON[T any](ctx context.Context, g record.Gateway, kind record.Kind) ([]T, error) {
	recs, err := g.ListAll(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		var v T
		if err := json.Unmarshal(r.Data, &v); err != nil {
			return nil, &domain.StorageError{Op: "decode", Kind: string(kind), ID: r.ID, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
