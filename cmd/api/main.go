package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classroom-games/chicken-backend/internal/v1/api"
	"github.com/classroom-games/chicken-backend/internal/v1/cleanup"
	"github.com/classroom-games/chicken-backend/internal/v1/config"
	"github.com/classroom-games/chicken-backend/internal/v1/health"
	"github.com/classroom-games/chicken-backend/internal/v1/indicator"
	"github.com/classroom-games/chicken-backend/internal/v1/logging"
	"github.com/classroom-games/chicken-backend/internal/v1/message"
	"github.com/classroom-games/chicken-backend/internal/v1/middleware"
	"github.com/classroom-games/chicken-backend/internal/v1/ratelimit"
	"github.com/classroom-games/chicken-backend/internal/v1/roommgr"
	"github.com/classroom-games/chicken-backend/internal/v1/round"
	"github.com/classroom-games/chicken-backend/internal/v1/snapshot"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/summary"
	"github.com/classroom-games/chicken-backend/internal/v1/tracing"
)

const serviceName = "chicken-backend"

func main() {
	envPaths := []string{".env", "../../.env"}
	var envLoaded bool
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			envLoaded = true
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	if !envLoaded {
		logging.Warn(nil, "no .env file found in any expected location, relying on environment variables")
	}

	ctx := context.Background()

	var tracerShutdown func(context.Context) error
	if cfg.OtelCollectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.OtelCollectorAddr)
		if err != nil {
			logging.Fatal(ctx, "failed to initialize tracer", zap.Error(err))
		}
		tracerShutdown = tp.Shutdown
	}

	db, err := store.NewPgStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal(ctx, "failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logging.Fatal(ctx, "failed to run migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Warn(ctx, "redis unreachable at startup, continuing anyway", zap.Error(err))
		}
	}

	rl, err := ratelimit.NewRateLimiter(cfg, redisClient)
	if err != nil {
		logging.Fatal(ctx, "failed to initialize rate limiter", zap.Error(err))
	}

	cleaner := cleanup.New(db, cfg.CleanupInterval, cfg.CleanupWaitingPlayingThreshold, cfg.CleanupFinishedThreshold)
	cleaner.Start(ctx)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleaner.Stop(shutdownCtx); err != nil {
			logging.Error(ctx, "cleanup stop did not finish cleanly", zap.Error(err))
		}
	}()

	srv := &api.Server{
		Rooms:      roommgr.New(db),
		Rounds:     round.New(db),
		Messages:   message.New(db),
		Indicators: indicator.New(db),
		Snapshots:  snapshot.New(db),
		Summaries:  summary.New(db),
	}
	healthHandler := health.NewHandler(db, redisClient)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.CorrelationID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = allowedOrigins(cfg.AllowedOrigins)
	router.Use(cors.New(corsCfg))
	router.Use(gin.Recovery())
	router.Use(rl.GlobalMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	apiGroup := router.Group("/api")
	srv.RegisterRoutes(apiGroup, rl)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "api server starting", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "tracer shutdown failed", zap.Error(err))
		}
	}

	logging.Info(ctx, "server exiting")
}

func allowedOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
