package threadlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	// TTL bounds how long a crashed holder keeps the lock.
	TTL        time.Duration
	RetryDelay time.Duration
	KeyPrefix  string
}

// Redis is a Locker shared by every replica using the same Redis server.
type Redis struct {
	client redis.UniversalClient
	cfg    RedisConfig
	logger *zap.Logger
}

func NewRedis(client redis.UniversalClient, cfg RedisConfig, logger *zap.Logger) *Redis {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "nutrobo:thread-lock:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

func (r *Redis) Lock(ctx context.Context, threadID string) (func(), error) {
	key := r.cfg.KeyPrefix + threadID
	token := uuid.NewString()

	ticker := time.NewTicker(r.cfg.RetryDelay)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire thread lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// release even if the request context is already done
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := releaseScript.Run(ctx, r.client, []string{key}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("Failed to release thread lock",
				zap.Error(err),
				zap.String("thread_id", threadID))
		}
	}, nil
}
