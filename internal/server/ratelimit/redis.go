package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisPrefix = "application-assistant:ratelimit"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter counts requests per client, endpoint and method in fixed
// windows shared by every server instance. Redis errors fail open.
type RedisLimiter struct {
	config *Config
	client *redis.Client
	prefix string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewRedisLimiter connects to config.RedisAddr.
func NewRedisLimiter(config *Config, logger logrus.FieldLogger) (*RedisLimiter, error) {
	if config == nil {
		return nil, errors.New("rate limiter config is required")
	}
	addr := strings.TrimSpace(config.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: config.RedisPassword})
	return newRedisLimiter(config, client, logger), nil
}

func newRedisLimiter(config *Config, client *redis.Client, logger logrus.FieldLogger) *RedisLimiter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	prefix := strings.TrimSpace(config.RedisPrefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLimiter{config: config, client: client, prefix: prefix, logger: logger, now: time.Now}
}

// Allow increments the caller's counter for the current window.
func (l *RedisLimiter) Allow(clientID, endpoint, method string) (bool, Info) {
	d, policy := l.config.resolve(clientID, endpoint, method)
	switch d {
	case decisionAllow:
		return true, Info{Allowed: true}
	case decisionDeny:
		return false, Info{}
	}

	windowMs := policy.Window.Milliseconds()
	now := l.now().UTC()
	slot := now.UnixMilli() / windowMs
	resetTime := time.UnixMilli((slot + 1) * windowMs).UTC()
	key := fmt.Sprintf("%s:%s:%s:%s:%d", l.prefix, clientID, method, endpoint, slot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Int64()
	if err != nil {
		l.logger.WithError(err).WithField("endpoint", endpoint).Warn("Rate limit check failed; allowing request")
		return true, Info{Allowed: true}
	}

	allowed := count <= int64(policy.Limit)
	info := Info{
		Allowed:   allowed,
		Limit:     policy.Limit,
		Remaining: max(0, policy.Limit-int(count)),
		ResetTime: resetTime,
	}
	if !allowed {
		info.RetryAfter = resetTime.Sub(now)
	}
	return allowed, info
}

// Stop closes the Redis client.
func (l *RedisLimiter) Stop() {
	if err := l.client.Close(); err != nil {
		l.logger.WithError(err).Debug("Closing rate limit redis client")
	}
}
