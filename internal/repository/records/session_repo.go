package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Uptimer/internal/auth"
	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/NordCoder/Uptimer/internal/domain/session"
)

var _ session.Store = (*SessionRepo)(nil)

// SessionRepo stores sessions in the tokens kind, keyed by token hash.
// Expired sessions are deleted when they are next looked up.
type SessionRepo struct {
	g   record.Gateway
	now func() time.Time
}

func NewSessionRepo(g record.Gateway, now func() time.Time) *SessionRepo {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionRepo{g: g, now: now}
}

func (r *SessionRepo) Create(ctx context.Context, userID string, ttl time.Duration) (string, session.Session, error) {
	raw, err := auth.GenerateRawToken(auth.TokenBytes)
	if err != nil {
		return "", session.Session{}, err
	}
	s := session.Session{
		TokenHash: auth.HashToken(raw),
		UserID:    userID,
		ExpiresAt: r.now().Add(ttl),
	}
	if err := putJSON(ctx, r.g, record.KindTokens, s.TokenHash, s); err != nil {
		return "", session.Session{}, err
	}
	return raw, s, nil
}

func (r *SessionRepo) Get(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Session{}, domain.ErrInvalidToken
	}
	hash := auth.HashToken(token)
	var s session.Session
	if err := getJSON(ctx, r.g, record.KindTokens, hash, &s); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return session.Session{}, domain.ErrInvalidToken
		}
		return session.Session{}, err
	}
	if s.Expired(r.now()) {
		_ = r.g.Delete(ctx, record.KindTokens, hash)
		return session.Session{}, domain.ErrInvalidToken
	}
	return s, nil
}

func (r *SessionRepo) Validate(ctx context.Context, token string) (string, error) {
	s, err := r.Get(ctx, token)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (r *SessionRepo) Extend(ctx context.Context, token string, ttl time.Duration) (session.Session, error) {
	s, err := r.Get(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	s.ExpiresAt = r.now().Add(ttl)
	if err := putJSON(ctx, r.g, record.KindTokens, s.TokenHash, s); err != nil {
		return session.Session{}, fmt.Errorf("extend session: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.g.Delete(ctx, record.KindTokens, auth.HashToken(token))
}
