package session

import (
	"context"
	"time"
)

// Session is stored under the hash of its token; the raw token only travels to the client.
type Session struct {
	TokenHash string    `json:"tokenHash"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Store interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (token string, s Session, err error)
	Get(ctx context.Context, token string) (Session, error)
	Validate(ctx context.Context, token string) (userID string, err error)
	Extend(ctx context.Context, token string, ttl time.Duration) (Session, error)
	Delete(ctx context.Context, token string) error
}
