package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tmforge/fulfilld/internal/application/orchestrator"
	"github.com/tmforge/fulfilld/internal/application/workers"
	"github.com/tmforge/fulfilld/internal/config"
	"github.com/tmforge/fulfilld/internal/ports"
	eventsmemory "github.com/tmforge/fulfilld/pkg/adapters/events/memory"
	eventsredis "github.com/tmforge/fulfilld/pkg/adapters/events/redis"
	"github.com/tmforge/fulfilld/pkg/adapters/metrics/prometheus"
	"github.com/tmforge/fulfilld/pkg/adapters/provision"
	storagememory "github.com/tmforge/fulfilld/pkg/adapters/storage/memory"
	storageredis "github.com/tmforge/fulfilld/pkg/adapters/storage/redis"
	"github.com/tmforge/fulfilld/pkg/api/grpc"
	"github.com/tmforge/fulfilld/pkg/api/http"
	"github.com/tmforge/fulfilld/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting fulfillment orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	var (
		store       ports.ContextStore
		eventBus    ports.EventBus
		redisClient *goredis.Client
	)

	switch cfg.StorageBackend {
	case "redis":
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		store = storageredis.NewContextStore(redisClient, cfg.Timeouts.ContextTTL, logger)

		bus, err := eventsredis.NewStreamsEventBus(
			redisClient,
			"fulfilld-consumers",
			fmt.Sprintf("fulfilld-%d", os.Getpid()),
			logger,
		)
		if err != nil {
			logger.Fatal("failed to create event bus", zap.Error(err))
		}
		eventBus = bus
	default:
		store = storagememory.NewContextStore()
		eventBus = eventsmemory.NewEventBus()
		logger.Info("using in-memory storage and events")
	}

	metricsCollector := prometheus.NewCollector()

	executors := provision.NewRegistryFromConfig(&provision.Config{
		ActivationURL: cfg.Provision.ActivationURL,
		ResourceURL:   cfg.Provision.ResourceURL,
		InventoryURL:  cfg.Provision.InventoryURL,
		Timeout:       cfg.Provision.RequestTimeout,
		Logger:        logger,
	})

	orch := orchestrator.New(
		store,
		eventBus,
		metricsCollector,
		executors,
		logger,
		cfg.Timeouts.DispatchTimeout,
		orchestrator.WithActivationChain(cfg.ActivationChain),
	)

	workerPool, err := workers.NewPool(
		cfg.Workers.PoolSize,
		orch,
		store,
		metricsCollector,
		logger,
		cfg.Workers.SweepSchedule,
		cfg.Workers.HealthCheckInterval,
	)
	if err != nil {
		logger.Fatal("failed to create worker pool", zap.Error(err))
	}

	if err := workerPool.Start(); err != nil {
		logger.Fatal("failed to start worker pool", zap.Error(err))
	}

	httpServer := http.NewServer(&http.Config{
		Port:         cfg.HTTPPort,
		Orchestrator: orch,
		Health:       workerPool.Health(),
		Logger:       logger,
	})

	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:         cfg.GRPCPort,
		Orchestrator: orch,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("fulfillment orchestrator started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.String("storage", cfg.StorageBackend))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := workerPool.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker pool shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("fulfillment orchestrator shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
