package records

import (
	"context"

	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

var _ check.Repo = (*CheckRepo)(nil)

type CheckRepo struct{ g record.Gateway }

func NewCheckRepo(g record.Gateway) *CheckRepo { return &CheckRepo{g: g} }

func (r *CheckRepo) Get(ctx context.Context, id string) (check.Check, error) {
	var c check.Check
	err := getJSON(ctx, r.g, record.KindChecks, id, &c)
	return c, err
}

func (r *CheckRepo) Put(ctx context.Context, c check.Check) error {
	return putJSON(ctx, r.g, record.KindChecks, c.ID, c)
}

func (r *CheckRepo) Delete(ctx context.Context, id string) error {
	return r.g.Delete(ctx, record.KindChecks, id)
}

func (r *CheckRepo) List(ctx context.Context) ([]check.Check, error) {
	return listJSON[check.Check](ctx, r.g, record.KindChecks)
}
