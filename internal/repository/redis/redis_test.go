package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Uptimer/internal/auth"
	"github.com/NordCoder/Uptimer/internal/domain"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestSessionStore_CreateValidateDelete(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "")
	ctx := context.Background()

	token, sess, err := store.Create(ctx, "u1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, auth.HashToken(token), sess.TokenHash)

	remaining := server.TTL("session:" + sess.TokenHash)
	assert.True(t, remaining > 0 && remaining <= time.Hour, "ttl %v", remaining)

	uid, err := store.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Validate(ctx, token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionStore_ExpiresWithKey(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "s")
	ctx := context.Background()

	token, _, err := store.Create(ctx, "u1", time.Minute)
	require.NoError(t, err)

	server.FastForward(2 * time.Minute)
	_, err = store.Validate(ctx, token)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = store.Extend(ctx, token, time.Hour)
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestSessionStore_Extend(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "s")
	ctx := context.Background()

	token, sess, err := store.Create(ctx, "u1", time.Minute)
	require.NoError(t, err)

	_, err = store.Extend(ctx, token, time.Hour)
	require.NoError(t, err)
	assert.Greater(t, server.TTL("s:"+sess.TokenHash), time.Minute)
}

func TestLease_Exclusive(t *testing.T) {
	client, server := newTestRedis(t)
	lease := NewLease(client, "")
	ctx := context.Background()

	release, ok, err := lease.Acquire(ctx, "check:c1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lease.Acquire(ctx, "check:c1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	release(ctx)
	assert.False(t, server.Exists("lease:check:c1"))

	_, ok, err = lease.Acquire(ctx, "check:c1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLease_ReleaseDoesNotStealNewHolder(t *testing.T) {
	client, server := newTestRedis(t)
	lease := NewLease(client, "")
	ctx := context.Background()

	release, ok, err := lease.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	server.FastForward(2 * time.Second)
	_, ok, err = lease.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release(ctx)
	assert.True(t, server.Exists("lease:k"))
}
