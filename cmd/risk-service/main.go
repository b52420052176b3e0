// Package main is the entry point for the Adaptive Risk Decision Service.
// It scores authentication attempts, maps scores to policy decisions, and
// manages step-up trust sessions.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/riskgate/riskgate/internal/common/config"
	"github.com/riskgate/riskgate/internal/common/database"
	"github.com/riskgate/riskgate/internal/common/health"
	"github.com/riskgate/riskgate/internal/common/logger"
	"github.com/riskgate/riskgate/internal/common/tracing"
	"github.com/riskgate/riskgate/internal/metrics"
	"github.com/riskgate/riskgate/internal/risk"
	"github.com/riskgate/riskgate/internal/server"
)

var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
)

func main() {
	// Initialize logger
	log := logger.New()
	defer log.Sync()

	log.Info("Starting Adaptive Risk Decision Service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", CommitHash),
	)

	// Load configuration
	cfg, err := config.Load("risk-service")
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	cfg.LogSecurityWarnings(log)

	// Initialize tracing
	shutdownTracer, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		SampleRate:  1.0,
	}, log)
	if err != nil {
		log.Warn("Failed to initialize tracing", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	// Initialize database connection
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Initialize Redis connection
	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(logger.GinMiddleware(log))
	router.Use(metrics.Middleware())

	// CORS middleware
	corsOrigin := cfg.CORSAllowedOrigins
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", corsOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Metrics endpoint
	router.GET("/metrics", metrics.Handler())

	// Health endpoints with database and Redis checks
	healthService := health.NewService(log)
	healthService.SetVersion(Version)
	healthService.RegisterCheck(health.NewPostgresChecker(db))
	healthService.RegisterCheck(health.NewRedisChecker(redis))
	healthService.RegisterRoutes(router)

	// Assemble the decision pipeline: durable profiles and alerts in
	// Postgres, step-up sessions shared across replicas through Redis.
	if err := risk.InitializeSchema(context.Background(), db.Pool); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	store := risk.NewPostgresStore(db, log)
	stepupStore := risk.NewRedisStepUpStore(redis, cfg.Risk.StepUpTTL)

	svc := risk.NewService(risk.ServiceConfig{
		Engine:    cfg.Risk,
		LockWait:  cfg.LockWait,
		JWTSecret: []byte(cfg.JWTSecret),
	}, store, stepupStore, store, log)

	audit := logger.NewAuditLogger(log)
	handlers := risk.NewHandlers(svc, audit, log)
	handlers.RegisterRoutes(router)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: stop accepting requests, then close dependencies
	graceful := server.New(server.Config{
		Server: httpServer,
		Logger: log,
		Shutdownables: []server.Shutdownable{
			server.CloseDB(db),
			server.CloseRedis(redis),
			server.CloseTracer(shutdownTracer),
		},
		ShutdownTimeout: 30 * time.Second,
	})

	if err := graceful.ListenAndServe(); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}
