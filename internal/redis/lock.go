package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("scope lock not acquired")
)

// Locker guards critical sections of the waitlist state machine. All
// transitions for one (tenant, scope) pair must run under the same lock;
// different scopes proceed in parallel.
type Locker interface {
	WithScopeLock(ctx context.Context, tenantID uuid.UUID, scopeKey string, fn func(ctx context.Context) error) error
}

type redisScopeLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScopeLocker creates a locker that uses one Redis key per scope.
func NewRedisScopeLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScopeLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisScopeLocker) WithScopeLock(ctx context.Context, tenantID uuid.UUID, scopeKey string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:scope:%s:%s", tenantID.String(), scopeKey)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire scope lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScopeLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release scope lock: %w", err)
	}
	return nil
}
