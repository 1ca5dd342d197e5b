// Package ratelimit limits requests per client and endpoint, either in process
// with token buckets or across instances with a Redis fixed window.
package ratelimit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Allower decides whether a request may proceed.
type Allower interface {
	Allow(clientID, endpoint, method string) (bool, Info)
	Stop()
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// New returns the Redis limiter when config.RedisAddr is set and the
// in-memory limiter otherwise.
func New(config *Config, logger logrus.FieldLogger) (Allower, error) {
	if config != nil && config.Enabled && config.RedisAddr != "" {
		return NewRedisLimiter(config, logger)
	}
	return NewLimiter(config), nil
}

type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) refill(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
}

// take consumes a token if one is available and reports the bucket state afterwards.
func (b *tokenBucket) take() (ok bool, remaining int, resetTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}

	resetTime = now
	if b.tokens < b.capacity {
		secondsUntilFull := (b.capacity - b.tokens) / b.refillRate
		resetTime = now.Add(time.Duration(secondsUntilFull * float64(time.Second)))
	}
	return ok, int(b.tokens), resetTime
}

// Limiter is the in-process token bucket limiter, one bucket per client,
// endpoint and method.
type Limiter struct {
	config *Config

	mu         sync.Mutex
	buckets    map[string]*tokenBucket
	lastAccess map[string]time.Time

	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

// NewLimiter creates a new in-memory limiter. A nil config allows 1000
// requests per minute per endpoint.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		config:     config,
		buckets:    make(map[string]*tokenBucket),
		lastAccess: make(map[string]time.Time),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		l.ticker = time.NewTicker(config.CleanupInterval)
		l.stop = make(chan struct{})
		go l.cleanupLoop()
	}
	return l
}

// Allow checks and consumes one request for clientID on the endpoint.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	switch d, policy := l.config.resolve(clientID, endpoint, method); d {
	case decisionAllow:
		return true, Info{Allowed: true}
	case decisionDeny:
		return false, Info{}
	default:
		key := clientID + ":" + endpoint + ":" + method
		allowed, remaining, resetTime := l.bucket(key, policy).take()

		info := Info{Allowed: allowed, Limit: policy.Limit, Remaining: remaining, ResetTime: resetTime}
		if !allowed {
			info.RetryAfter = max(0, time.Until(resetTime))
		}
		return allowed, info
	}
}

func (l *Limiter) bucket(key string, policy EndpointConfig) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastAccess[key] = time.Now()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := policy.Burst
	if capacity <= 0 {
		capacity = policy.Limit
	}
	b := newTokenBucket(capacity, float64(policy.Limit)/policy.Window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.evictIdle(time.Now().Add(-time.Hour))
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff.
func (l *Limiter) evictIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, last := range l.lastAccess {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastAccess, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
			close(l.stop)
		}
	})
}
