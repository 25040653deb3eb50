package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultTTL           = 10 * time.Second
	defaultRetryInterval = 25 * time.Millisecond
	keyPrefix            = "parking:lock:"
)

// unlockScript deletes the key only when it still holds our token.
var unlockScript = goredis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Redis is a single-node SET NX lock shared by every instance talking to the
// same server. A holder that dies keeps the key until ttl expires.
type Redis struct {
	client        goredis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedis(client goredis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{client: client, ttl: ttl, retryInterval: defaultRetryInterval}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockFailed, key, ctx.Err())
		case <-time.After(r.retryInterval):
		}
	}

	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, r.client, []string{redisKey}, token).Int64()
		if err != nil {
			return fmt.Errorf("lock: release %s: %w", key, err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		return nil
	}, nil
}
