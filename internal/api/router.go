package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"library-room-booker/internal/mw"
)

// RouterConfig tunes the middleware in front of the handlers.
type RouterConfig struct {
	RateLimit        rate.Limit
	RateBurst        int
	Cache            *cache.Cache
	CacheTTL         time.Duration
	TriggerTokenHash string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg RouterConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	if cfg.Cache == nil {
		cfg.Cache = cache.New(cfg.CacheTTL, 10*time.Minute)
	}
	caching := mw.Cache(cfg.Cache, cfg.CacheTTL)
	rateLimiter := mw.RateLimiter(cfg.RateLimit, cfg.RateBurst)

	r.GET("/healthz", handler.Healthz)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/attempts", caching, handler.ListAttempts)
		api.GET("/attempts/:run_id", handler.GetAttempt)
		api.GET("/availability", caching, handler.GetAvailability)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		api.POST("/runs", mw.RequireToken(cfg.TriggerTokenHash), handler.TriggerRun)
	}

	return r
}
