package records

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/NordCoder/Uptimer/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

// UserRepo keeps users by id plus an email -> id index record.
type UserRepo struct {
	g  record.Gateway
	mu sync.Mutex // serializes the email uniqueness check with the index write
}

func NewUserRepo(g record.Gateway) *UserRepo { return &UserRepo{g: g} }

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var owner string
	err := getJSON(ctx, r.g, record.KindUserEmails, u.Email, &owner)
	switch {
	case err == nil:
		if _, gerr := r.GetByID(ctx, owner); gerr == nil {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if err := putJSON(ctx, r.g, record.KindUsers, u.ID, u); err != nil {
		return err
	}
	return putJSON(ctx, r.g, record.KindUserEmails, u.Email, u.ID)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	if err := getJSON(ctx, r.g, record.KindUsers, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var id string
	if err := getJSON(ctx, r.g, record.KindUserEmails, email, &id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	return putJSON(ctx, r.g, record.KindUsers, u.ID, u)
}

func (r *UserRepo) Delete(ctx context.Context, u *user.User) error {
	if err := r.g.Delete(ctx, record.KindUsers, u.ID); err != nil {
		return err
	}
	return r.g.Delete(ctx, record.KindUserEmails, u.Email)
}
