package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/config"
	"github.com/projectsentry/replenishment-service/internal/broker"
	"github.com/projectsentry/replenishment-service/internal/cache"
	"github.com/projectsentry/replenishment-service/internal/database"
	"github.com/projectsentry/replenishment-service/internal/logging"
	"github.com/projectsentry/replenishment-service/internal/search"

	invHandler "github.com/projectsentry/replenishment-service/internal/inventory/handler"
	invRepo "github.com/projectsentry/replenishment-service/internal/inventory/repository"
	invUsecase "github.com/projectsentry/replenishment-service/internal/inventory/usecase"

	"github.com/projectsentry/replenishment-service/internal/replenishment"
	repHandler "github.com/projectsentry/replenishment-service/internal/replenishment/handler"
	repListener "github.com/projectsentry/replenishment-service/internal/replenishment/listener"
	repRepo "github.com/projectsentry/replenishment-service/internal/replenishment/repository"
	repUsecase "github.com/projectsentry/replenishment-service/internal/replenishment/usecase"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	logger, err := logging.NewLogger(&logging.Config{
		Level:             cfg.Logger.Level,
		Encoding:          cfg.Logger.Encoding,
		Development:       cfg.Server.AppEnv == "development",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to postgres", zap.String("host", cfg.Postgres.Host))

	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	topics := replenishment.TopicsFor(cfg.Kafka.TopicPrefix)

	producer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Source:  cfg.Kafka.Source,
	})
	defer producer.Close()

	consumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  topics.All(),
	})
	defer consumer.Close()

	// Search is optional; the workflow and database queries keep working
	// without it.
	searchClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		logger.Warn("elasticsearch unavailable, order search falls back to postgres", zap.Error(err))
		searchClient = nil
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := searchClient.CreateIndex(ctx, repUsecase.OrdersIndex, repUsecase.OrdersIndexMapping); err != nil {
			logger.Warn("failed to ensure search index", zap.Error(err))
		}
		cancel()
	}

	inventoryRepo := invRepo.NewPGRepository(db)
	inventoryUC := invUsecase.NewInventoryUseCase(inventoryRepo, logger)

	orderRepo := repRepo.NewPGRepository(db)
	replenishmentUC := repUsecase.NewReplenishmentUseCase(
		replenishment.Config{
			Topics:              topics,
			DefaultWarehouseID:  cfg.Replenishment.DefaultWarehouseID,
			DefaultCarrier:      cfg.Replenishment.DefaultCarrier,
			DefaultDeliveryDays: cfg.Replenishment.DefaultDeliveryDays,
			LockTTL:             time.Duration(cfg.Replenishment.LockTTLSeconds) * time.Second,
			LockRetries:         cfg.Replenishment.LockRetries,
			LockRetryInterval:   time.Duration(cfg.Replenishment.LockRetryIntervalMS) * time.Millisecond,
			PublishTimeout:      time.Duration(cfg.Replenishment.PublishTimeoutSeconds) * time.Second,
		},
		orderRepo,
		inventoryRepo,
		producer,
		redisClient,
		searchClient,
		logger,
	)

	if cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.Kafka.Source})
	})

	v1 := router.Group("/api/v1")
	repHandler.NewReplenishmentHandler(replenishmentUC, logger).RegisterRoutes(v1.Group("/replenishment"))
	invHandler.NewInventoryHandler(inventoryUC, logger).RegisterRoutes(v1.Group("/inventory"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stageListener := repListener.NewStageListener(consumer, topics, logger)
	go stageListener.Start(ctx)

	server := &http.Server{
		Addr:         cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
