// Package ratelimit implements rate limiting logic using Redis or local memory.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/classroom-games/chicken-backend/internal/v1/config"
	"github.com/classroom-games/chicken-backend/internal/v1/logging"
	"github.com/classroom-games/chicken-backend/internal/v1/metrics"
)

// RateLimiter holds the rate limiter instances for the public API. There is
// no authenticated-user identity in this service (auth is an external
// collaborator per spec.md §1), so every limiter is keyed by client IP.
type RateLimiter struct {
	apiGlobal   *limiter.Limiter
	apiRooms    *limiter.Limiter
	apiActions  *limiter.Limiter
	apiMessages *limiter.Limiter
	redisClient *redis.Client
}

// NewRateLimiter creates a new RateLimiter instance.
func NewRateLimiter(cfg *config.Config, redisClient *redis.Client) (*RateLimiter, error) {
	apiGlobalRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIGlobal)
	if err != nil {
		return nil, fmt.Errorf("invalid API global rate: %w", err)
	}
	apiRoomsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIRooms)
	if err != nil {
		return nil, fmt.Errorf("invalid API rooms rate: %w", err)
	}
	apiActionsRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIActions)
	if err != nil {
		return nil, fmt.Errorf("invalid API actions rate: %w", err)
	}
	apiMessagesRate, err := limiter.NewRateFromFormatted(cfg.RateLimitAPIMessages)
	if err != nil {
		return nil, fmt.Errorf("invalid API messages rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:v1:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(nil, "rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Warn(nil, "rate limiter using in-memory store (Redis disabled)")
	}

	return &RateLimiter{
		apiGlobal:   limiter.New(store, apiGlobalRate),
		apiRooms:    limiter.New(store, apiRoomsRate),
		apiActions:  limiter.New(store, apiActionsRate),
		apiMessages: limiter.New(store, apiMessagesRate),
		redisClient: redisClient,
	}, nil
}

// GlobalMiddleware enforces the blanket per-IP request budget across every
// endpoint in the API.
func (rl *RateLimiter) GlobalMiddleware() gin.HandlerFunc {
	return rl.middlewareFor(rl.apiGlobal, "global")
}

// MiddlewareForEndpoint enforces a tighter, endpoint-specific budget on top
// of the global one. endpointType selects which limiter instance to apply.
func (rl *RateLimiter) MiddlewareForEndpoint(endpointType string) gin.HandlerFunc {
	var limiterInstance *limiter.Limiter
	switch endpointType {
	case "rooms":
		limiterInstance = rl.apiRooms
	case "actions":
		limiterInstance = rl.apiActions
	case "messages":
		limiterInstance = rl.apiMessages
	default:
		limiterInstance = rl.apiGlobal
	}
	return rl.middlewareFor(limiterInstance, endpointType)
}

func (rl *RateLimiter) middlewareFor(limiterInstance *limiter.Limiter, limitType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		ctx := c.Request.Context()

		context, err := limiterInstance.Get(ctx, key)
		if err != nil {
			// Fail open: availability beats strict enforcement when the
			// backing store (Redis) is unreachable.
			logging.Error(ctx, "rate limiter store failed", zap.String("limit_type", limitType), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

		if context.Reached {
			metrics.RateLimitExceeded.WithLabelValues(c.FullPath(), limitType).Inc()
			c.Header("Retry-After", strconv.FormatInt(context.Reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail": "too many requests",
			})
			return
		}

		metrics.RateLimitRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
