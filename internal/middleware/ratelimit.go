package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"happythoughts/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var errNilRedis = errors.New("redis client is nil")

// RateLimitBypassed reports whether env skips rate limiting so dev and test
// workflows are not throttled.
func RateLimitBypassed(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for id on resource and reports whether it is within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNilRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	// INCR and set EXPIRE if new
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit enforces limit requests per window per client IP for env. It counts in
// Redis when rdb is set and fails open; without Redis it uses an in-process limiter.
func RateLimit(rdb *redis.Client, env string, limit int, window time.Duration, resource string) fiber.Handler {
	if rdb == nil {
		return limiter.New(limiter.Config{
			Next:         func(*fiber.Ctx) bool { return RateLimitBypassed(env) },
			Max:          limit,
			Expiration:   window,
			KeyGenerator: func(c *fiber.Ctx) string { return resource + ":" + c.IP() },
			LimitReached: tooManyRequests,
		})
	}
	return RateLimitWithPolicy(rdb, env, limit, window, FailOpen, resource)
}

// RateLimitWithPolicy is the Redis-backed limiter with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, env string, limit int, window time.Duration, policy FailPolicy, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if RateLimitBypassed(env) {
			return c.Next()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, "ip:"+c.IP(), limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable, models.NewUnavailableError(err))
			}
			return c.Next()
		}

		if !allowed {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
		Code:    models.CodeRateLimited,
		Message: "Too many requests",
	})
}
