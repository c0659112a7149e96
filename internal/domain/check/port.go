package check

import "context"

type Repo interface {
	Get(ctx context.Context, id string) (Check, error)
	Put(ctx context.Context, c Check) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Check, error)
}
