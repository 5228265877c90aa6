package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisRateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 or redis.call("PTTL", KEYS[1]) == -1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	logger *zap.Logger
}

// NewRedisRateLimiter cuenta intentos en Redis con ventana fija; ante errores de Redis deja pasar.
func NewRedisRateLimiter(client *redis.Client, category string, window time.Duration, max int, logger *zap.Logger) RateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "rl:" + category + ":",
		logger: logger,
	}
}

func (l *redisRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = normalizeLimiterKey(key)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	count, err := l.client.Eval(ctx, redisRateLimitScript, []string{l.prefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		l.logger.Warn("rate limiter redis error, allowing request", zap.Error(err), zap.String("key", l.prefix+key))
		return true
	}
	return count <= l.max
}
