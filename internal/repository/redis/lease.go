package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/NordCoder/Uptimer/internal/auth"
)

const defaultLeasePrefix = "lease"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = red.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a best-effort distributed mutex so replicas do not probe the same check at once.
type Lease struct {
	client *red.Client
	prefix string
}

func NewLease(client *red.Client, keyPrefix string) *Lease {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultLeasePrefix
	}
	return &Lease{client: client, prefix: prefix}
}

// Acquire returns ok=false when another holder owns the key. The returned release
// is safe to call after the ttl has passed.
func (l *Lease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), bool, error) {
	token, err := auth.GenerateRawToken(12)
	if err != nil {
		return nil, false, err
	}
	k := fmt.Sprintf("%s:%s", l.prefix, key)
	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
	}
	return release, true, nil
}
