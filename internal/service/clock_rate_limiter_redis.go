package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisClockAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisClockRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisClockRateLimiter crea un rate limiter compartido entre replicas,
// respaldado en redis. Falla abierto: si redis no responde, deja pasar.
func NewRedisClockRateLimiter(client *redis.Client, window time.Duration, max int) ClockRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisClockRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "attendance:rl:",
	}
}

func (l *redisClockRateLimiter) Allow(userID int64) bool {
	if l == nil || l.client == nil {
		return true
	}
	if userID <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + strconv.FormatInt(userID, 10)
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisClockAllowScript, []string{redisKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
