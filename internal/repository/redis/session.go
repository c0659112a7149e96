package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/NordCoder/Uptimer/internal/auth"
	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/session"
)

const defaultSessionPrefix = "session"

var _ session.Store = (*SessionStore)(nil)

// SessionStore keeps sessions as JSON values whose key TTL matches the session expiry.
type SessionStore struct {
	client *red.Client
	prefix string
	now    func() time.Time
}

func NewSessionStore(client *red.Client, keyPrefix string) *SessionStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &SessionStore{client: client, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, session.Session, error) {
	if ttl <= 0 {
		return "", session.Session{}, errors.New("ttl must be positive")
	}
	raw, err := auth.GenerateRawToken(auth.TokenBytes)
	if err != nil {
		return "", session.Session{}, err
	}
	sess := session.Session{TokenHash: auth.HashToken(raw), UserID: userID, ExpiresAt: s.now().Add(ttl)}
	if err := s.write(ctx, sess, ttl); err != nil {
		return "", session.Session{}, err
	}
	return raw, sess, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (session.Session, error) {
	if strings.TrimSpace(token) == "" {
		return session.Session{}, domain.ErrInvalidToken
	}
	value, err := s.client.Get(ctx, s.key(auth.HashToken(token))).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return session.Session{}, domain.ErrInvalidToken
		}
		return session.Session{}, &domain.StorageError{Op: "get", Kind: "sessions", Err: err}
	}
	var sess session.Session
	if err := json.Unmarshal(value, &sess); err != nil {
		return session.Session{}, &domain.StorageError{Op: "decode", Kind: "sessions", Err: err}
	}
	if sess.Expired(s.now()) {
		return session.Session{}, domain.ErrInvalidToken
	}
	return sess, nil
}

func (s *SessionStore) Validate(ctx context.Context, token string) (string, error) {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}

func (s *SessionStore) Extend(ctx context.Context, token string, ttl time.Duration) (session.Session, error) {
	sess, err := s.Get(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	sess.ExpiresAt = s.now().Add(ttl)
	if err := s.write(ctx, sess, ttl); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(auth.HashToken(token))).Err(); err != nil {
		return &domain.StorageError{Op: "delete", Kind: "sessions", Err: err}
	}
	return nil
}

func (s *SessionStore) write(ctx context.Context, sess session.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.TokenHash), data, ttl).Err(); err != nil {
		return &domain.StorageError{Op: "put", Kind: "sessions", Err: err}
	}
	return nil
}

func (s *SessionStore) key(hash string) string {
	return fmt.Sprintf("%s:%s", s.prefix, hash)
}
