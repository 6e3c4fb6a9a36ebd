package middleware

import (
	"context"
	"time"

	"github.com/fathima-sithara/dm-service/pkg/apperrors"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Counter is the fixed-window counting primitive behind the limiter.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, window time.Duration) error
}

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r redisCounter) Expire(ctx context.Context, key string, window time.Duration) error {
	return r.client.Expire(ctx, key, window).Err()
}

// RateLimiter throttles per key over a fixed window. Errors surface as
// AppError values so the app's error handler maps them like any other.
type RateLimiter struct {
	counter Counter
	prefix  string
	limit   int
	window  time.Duration
}

func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterCounter(redisCounter{client: client}, prefix, limit, window)
}

func NewRateLimiterCounter(counter Counter, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{counter: counter, prefix: prefix, limit: limit, window: window}
}

// MiddlewareByKey throttles requests bucketed by keyFunc. The first hit
// of a window arms the expiry; every request rides the request context.
func (r *RateLimiter) MiddlewareByKey(keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := r.prefix + ":" + keyFunc(c)
		count, err := r.counter.Incr(c.Context(), key)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "rate limit check failed", err)
		}
		if count == 1 {
			if err := r.counter.Expire(c.Context(), key, r.window); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, "rate limit window failed", err)
			}
		}
		if count > int64(r.limit) {
			return apperrors.New(apperrors.CodeExhausted, "rate limit exceeded")
		}
		return c.Next()
	}
}
