package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"gigfolio/internal/models"
	"gigfolio/internal/observability"
	"gigfolio/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a rule does when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoStore = errors.New("rate limit store unavailable")

// LimitKey picks the bucket a request is counted in.
type LimitKey func(c *fiber.Ctx) string

// ClientIP counts requests per remote address.
func ClientIP(c *fiber.Ctx) string {
	return "ip:" + c.IP()
}

// EmailAndIP counts requests per submitted account and remote address. The email is
// normalized the way login looks it up, and hashed so keys carry no addresses.
func EmailAndIP(field string) LimitKey {
	return func(c *fiber.Ctx) string {
		sum := sha256.Sum256([]byte(validation.NormalizeEmail(c.FormValue(field))))
		return "acct:" + hex.EncodeToString(sum[:12]) + ":ip:" + c.IP()
	}
}

// Rule is one limited endpoint: at most Limit hits per Window for each key.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    LimitKey
	Policy FailPolicy
}

// Limiter counts hits in fixed windows stored in Redis.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewLimiter returns a Limiter that enforces rules only when env calls for it.
func NewLimiter(rdb *redis.Client, env string) *Limiter {
	return &Limiter{rdb: rdb, enabled: RateLimitEnabled(env)}
}

// RateLimitEnabled reports whether env enforces rate limits. Local and test profiles do not.
func RateLimitEnabled(env string) bool {
	switch env {
	case "", "test", "development", "stress":
		return false
	}
	return true
}

// Allow records one hit for key under rule. When the hit is over the limit it also
// returns how long the current window has left.
func (l *Limiter) Allow(ctx context.Context, rule Rule, key string) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errNoStore
	}

	redisKey := fmt.Sprintf("rl:%s:%s", rule.Name, key)

	var hits *redis.IntCmd
	var ttl *redis.DurationCmd
	// EXPIRE NX in the same transaction as INCR: a counter can never be left without a TTL.
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, rule.Window)
		ttl = pipe.PTTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("count %s hit: %w", rule.Name, err)
	}

	if hits.Val() <= int64(rule.Limit) {
		return true, 0, nil
	}
	return false, ttl.Val(), nil
}

// Middleware enforces rule on the routes it is mounted on.
func (l *Limiter) Middleware(rule Rule) fiber.Handler {
	key := rule.Key
	if key == nil {
		key = ClientIP
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		allowed, retryAfter, err := l.Allow(ctx, rule, key(c))
		if err != nil {
			Logger.WarnContext(ctx, "rate limit check failed",
				slog.String("rule", rule.Name),
				slog.Bool("fail_closed", rule.Policy == FailClosed),
				slog.String("error", err.Error()),
			)
			if rule.Policy == FailClosed {
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewUnavailableError("Rate limiting", err))
			}
			return c.Next()
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			observability.RateLimitedTotal.WithLabelValues(rule.Name).Inc()
			Logger.WarnContext(ctx, "rate limit exceeded",
				slog.String("rule", rule.Name),
				slog.String("ip", c.IP()),
				slog.Int("retry_after_s", seconds),
			)
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError(seconds))
		}
		return c.Next()
	}
}
