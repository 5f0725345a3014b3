package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"residence-backend/config"
	"residence-backend/internal/allocation"
	"residence-backend/internal/metrics"
	"residence-backend/internal/mw"
	"residence-backend/internal/store"
)

// RouterOptions carries the optional collaborators of the router.
type RouterOptions struct {
	Server  config.ServerConfig
	Webpush *webpush.Options
	Metrics *metrics.Recorder
	Log     *zap.Logger
	Limiter *mw.IPRateLimiter
	// Cache holds cached GET responses. Share it with CacheFlusher so writes made
	// outside HTTP, such as the periodic reconcile, also drop stale responses.
	Cache *cache.Cache
}

// NewResponseCache creates the GET response cache; a non-positive ttl falls back to 30s.
func NewResponseCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return cache.New(ttl, 2*ttl)
}

// CacheFlusher returns an observer that empties the response cache after every committed change.
func CacheFlusher(store *cache.Cache) allocation.Observer {
	return allocation.ObserverFunc(func(_ context.Context, _ allocation.Event) {
		store.Flush()
	})
}

// NewRouter creates and configures a new Gin router.
func NewRouter(engine *allocation.Engine, s store.Store, opts RouterOptions) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLog(log.Named("http"), opts.Metrics))
	r.Use(corsMiddleware(opts.Server.CORSOrigins))

	handler := NewHandler(engine, s, opts.Webpush, log)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = mw.NewIPRateLimiter(rate.Limit(opts.Server.RateLimitPerSec), opts.Server.RateLimitBurst)
	}
	ttl := opts.Server.CacheTTL()
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cacheStore := opts.Cache
	if cacheStore == nil {
		cacheStore = NewResponseCache(ttl)
	}
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/health", handler.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter), mw.Invalidate(cacheStore))
	{
		api.GET("/status", handler.Status)
		api.POST("/refresh", handler.Refresh)
		api.POST("/reconcile", handler.Reconcile)

		api.GET("/rooms", caching, handler.ListRooms)
		api.GET("/rooms/by-floor", caching, handler.RoomsByFloor)
		api.GET("/rooms/:room_id", caching, handler.GetRoom)
		api.POST("/rooms", handler.CreateRoom)
		api.PATCH("/rooms/:room_id", handler.UpdateRoom)
		api.DELETE("/rooms/:room_id", handler.DeleteRoom)

		api.GET("/beds/available", caching, handler.AvailableBeds)
		api.PUT("/beds/:bed_id/occupant", handler.SetOccupant)
		api.PUT("/beds/:bed_id/status", handler.SetStatus)

		api.GET("/guests/allocated", caching, handler.AllocatedGuests)

		api.GET("/occupancy", caching, handler.Occupancy)
		api.GET("/occupancy/export", handler.ExportOccupancy)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", mw.RequestIDHeader, ActorHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", mw.RequestIDHeader, mw.CacheHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	})
}
