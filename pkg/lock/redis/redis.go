package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/lock"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
	MaxWait    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Prefix:     "lock:",
		TTL:        10 * time.Second,
		RetryDelay: 25 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Locker is a lock.Locker backed by SET NX PX, usable across API replicas.
type Locker struct {
	client redis.UniversalClient
	config Config
}

func NewLocker(client redis.UniversalClient, config Config) *Locker {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	if config.MaxWait <= 0 {
		config.MaxWait = DefaultConfig().MaxWait
	}
	return &Locker{client: client, config: config}
}

func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	redisKey := l.config.Prefix + key
	token := uuid.NewString()

	if err := l.acquire(ctx, redisKey, token); err != nil {
		return err
	}
	defer func() {
		// Release even if ctx was cancelled while fn ran.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}()

	return fn(ctx)
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.config.RetryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.config.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Join(lock.ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}
