package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitTimeout = 200 * time.Millisecond

// RedisRateStore is a fixed-window echo RateLimiterStore shared by all
// replicas. It fails open when redis is unavailable.
type RedisRateStore struct {
	rdb    redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisRateStore(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *RedisRateStore {
	return &RedisRateStore{rdb: rdb, prefix: prefix, limit: int64(limit), window: window, now: time.Now}
}

func (s *RedisRateStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rateLimitTimeout)
	defer cancel()

	slot := s.now().UnixNano() / int64(s.window)
	key := fmt.Sprintf("eventtik:ratelimit:%s:%s:%d", s.prefix, identifier, slot)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("rate limiter unavailable", "component", "http", "error", err)
		return true, nil
	}
	return incr.Val() <= s.limit, nil
}

// NewMemoryRateStore is the single-process fallback used when redis is not
// configured. limit is requests per window.
func NewMemoryRateStore(limit int, window time.Duration) echoMw.RateLimiterStore {
	return echoMw.NewRateLimiterMemoryStoreWithConfig(echoMw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(limit) / window.Seconds()),
		Burst:     limit,
		ExpiresIn: 3 * window,
	})
}

// RateLimit limits requests per authenticated user, or per client IP for
// anonymous callers.
func RateLimit(store echoMw.RateLimiterStore) echo.MiddlewareFunc {
	return echoMw.RateLimiterWithConfig(echoMw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := UserID(c); id != "" {
				return "user:" + id, nil
			}
			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
				"message": "too many requests, please slow down",
				"code":    "rate_limited",
			})
		},
	})
}
