package middleware

import (
	"fmt"
	"time"

	"github.com/erp/manufacturing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitConfig configures the per-client request budget
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Redis shares the budget between instances; nil keeps counters in memory.
	Redis *redis.Client
}

// RateLimit limits each client IP to Requests per Window. Rejected requests
// get a 429 with the API error envelope; every response carries the
// X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit needs positive requests and window, got %d per %s", cfg.Requests, cfg.Window)
	}
	rate := limiter.Rate{Period: cfg.Window, Limit: int64(cfg.Requests)}

	var store limiter.Store
	if cfg.Redis != nil {
		var err error
		store, err = sredis.NewStoreWithOptions(cfg.Redis, limiter.StoreOptions{Prefix: "mfg:ratelimit"})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			abortWithError(c, dto.ErrCodeRateLimited, "Too many requests, retry later")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			_ = c.Error(err)
			abortWithError(c, dto.ErrCodeInternal, "Rate limiter unavailable")
		}),
	), nil
}
