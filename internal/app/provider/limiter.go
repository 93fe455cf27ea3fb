package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRateLimit is the number of requests a provider accepts per window.
const DefaultRateLimit = 60

// Limiter decides whether one more outbound request may be issued.
type Limiter interface {
	Allow(ctx context.Context) bool
}

// FixedWindow is an in-process counter reset at window boundaries.
// Counts are lost on restart and not shared between instances.
type FixedWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	count  int
	now    func() time.Time
}

// NewFixedWindow returns a limiter allowing limit requests per window,
// with windows aligned to multiples of window (minute boundaries for time.Minute).
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (f *FixedWindow) Allow(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	windowStart := f.now().Truncate(f.window)
	if !windowStart.Equal(f.start) {
		f.start = windowStart
		f.count = 0
	}
	if f.count >= f.limit {
		return false
	}
	f.count++
	return true
}

// RedisLimiter is a fixed-window counter shared through Redis, keyed by provider and window.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisLimiter returns a shared limiter for the named provider.
func NewRedisLimiter(client redis.Cmdable, name string, limit int, window time.Duration, logger *zap.Logger) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLimiter{
		client: client,
		prefix: "ratelimit:provider:" + name,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// Allow fails open when Redis is unavailable.
func (r *RedisLimiter) Allow(ctx context.Context) bool {
	windowStart := r.now().Truncate(r.window)
	key := fmt.Sprintf("%s:%d", r.prefix, windowStart.Unix())

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("provider rate limit redis error", zap.String("key", key), zap.Error(err))
		return true
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, 2*r.window).Err(); err != nil {
			r.logger.Warn("failed to set provider rate limit expiry", zap.String("key", key), zap.Error(err))
		}
	}

	return count <= int64(r.limit)
}
