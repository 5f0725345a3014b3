package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"residence-backend/config"
	"residence-backend/internal/allocation"
	"residence-backend/internal/api"
	"residence-backend/internal/db"
	"residence-backend/internal/events"
	"residence-backend/internal/logger"
	"residence-backend/internal/metrics"
	"residence-backend/internal/mw"
	"residence-backend/internal/notification"
	"residence-backend/internal/reconciler"
	"residence-backend/internal/store"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found; continuing with environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "residenced")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zl.Info("configuration loaded", zap.String("path", configPath))

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		zl.Warn("VAPID keys are not configured; vacancy notifications are disabled")
	}

	gormDB, err := db.Init(&cfg.Database, zl.Named("db"))
	if err != nil {
		zl.Fatal("failed to initialize database", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	recorder := metrics.NewRecorder()

	responseCache := api.NewResponseCache(cfg.Server.CacheTTL())
	observers := []allocation.Observer{api.CacheFlusher(responseCache)}
	if webpushOptions != nil {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, zl)
		pool.Start(ctx)
		observers = append(observers, pool)
	}
	if cfg.Events.Enabled {
		publisher, err := events.NewStreamPublisher(ctx, events.NewRedisClient(&cfg.Events), &cfg.Events, zl)
		if err != nil {
			zl.Fatal("failed to connect event stream", zap.String("addr", cfg.Events.RedisAddr), zap.Error(err))
		}
		defer publisher.Close()
		observers = append(observers, publisher)
	}

	engine := allocation.NewEngine(appStore,
		allocation.WithLimits(allocation.Limits{
			MaxBedsPerRoom: cfg.Allocation.MaxBedsPerRoom,
			MinFloor:       cfg.Allocation.MinFloor,
			MaxFloor:       cfg.Allocation.MaxFloor,
		}),
		allocation.WithLogger(zl),
		allocation.WithObservers(observers...),
		allocation.WithInstrumentation(recorder),
	)
	if err := engine.Refresh(ctx); err != nil {
		// Served as degraded until the reconciler's next refresh succeeds.
		zl.Error("initial state load failed", zap.Error(err))
	}

	go reconciler.NewService(&cfg.Allocation, engine, zl).Run(ctx)

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(limiterIdleTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := limiter.Evict(limiterIdleTimeout); n > 0 {
					zl.Debug("evicted idle rate limiters", zap.Int("count", n))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	router := api.NewRouter(engine, appStore, api.RouterOptions{
		Server:  cfg.Server,
		Webpush: webpushOptions,
		Metrics: recorder,
		Log:     zl,
		Limiter: limiter,
		Cache:   responseCache,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	zl.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server Shutdown", zap.Error(err))
	}

	zl.Info("server gracefully stopped")
}
