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
	// ErrLockNotAcquired means another holder owns the slot key.
	ErrLockNotAcquired = errors.New("slot lock not acquired")
	// ErrLockUnavailable means Redis could not be asked; fn was not run.
	ErrLockUnavailable = errors.New("slot lock unavailable")
)

// acquireTimeout bounds the SETNX round trip, dial and retries included.
const acquireTimeout = time.Second

// Locker is used by the appointment service to guard critical sections per
// (doctor, date, time) slot key.
type Locker interface {
	WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error
}

type redisSlotLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlotLocker creates a locker that uses a per slot Redis key
func NewRedisSlotLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSlotLocker{
		client: client,
		ttl:    ttl,
	}
}

func lockKey(slotKey string) string {
	return "lock:slot:" + slotKey
}

func (l *redisSlotLocker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	key := lockKey(slotKey)
	token := uuid.NewString()

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, acquireTimeout)
	ok, err := l.client.SetNX(acquireCtx, key, token, l.ttl).Result()
	cancelAcquire()
	if err != nil {
		return fmt.Errorf("%w: acquire %s: %w", ErrLockUnavailable, key, err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		// Released on a fresh context so a cancelled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = l.release(releaseCtx, key, token)
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

func (l *redisSlotLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
