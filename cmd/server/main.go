package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "habitrack/contracts/mq"
	"habitrack/internal/config"
	"habitrack/internal/habit"
	"habitrack/internal/handler"
	"habitrack/internal/httpserver"
	"habitrack/internal/mqhandler"
	"habitrack/internal/repository"
	"habitrack/internal/streak"
	"habitrack/pkg/db"
	"habitrack/pkg/logger"
	"habitrack/pkg/mq"
	"habitrack/pkg/outbox"
	"habitrack/pkg/redis"
	"habitrack/pkg/util"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid streak timezone", zap.Error(err))
	}

	log.Info("Starting habitrack...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("timezone", loc.String()),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if cfg.DB.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.ApplySchema(migrateCtx, dbConn, log)
		cancel()
		if err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	// Redis
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, cfg.Redis.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	completionRepo := repository.NewCompletionRepository(dbConn, outboxRepo, log)
	habitRepo := repository.NewHabitRepository(dbConn, outboxRepo, log)

	// Services（共用一个熔断器：同一个存储）
	breaker := streak.NewStorageBreaker()
	streakService := streak.NewService(completionRepo, log,
		streak.WithLocation(loc),
		streak.WithQueryTimeout(cfg.DB.QueryTimeout),
		streak.WithBreaker(breaker),
	)
	habitService := habit.NewService(habitRepo, log, cfg.DB.QueryTimeout, breaker)

	// Outbox Dispatcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize).
		WithMaxRetries(cfg.Outbox.MaxRetries)
	go dispatcher.Start(ctx)

	// MQ Consumer for registry.habit.deleted
	consumer, err := mq.NewConsumer(cfg.MQ, "habit.deleted.q", mqcontracts.RoutingRegistryHabitDelete, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(mqhandler.NewHabitDeletedHandler(completionRepo, deduper, cfg.DB.QueryTimeout, log).Handle)
	consumer.SetDeadLetter(retryCounter, publisher, cfg.MQ.MaxRetries)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Error("Habit deleted consumer stopped", zap.Error(err))
		}
	}()

	// HTTP Server
	router := httpserver.NewRouter(
		handler.NewStreakHandler(streakService, log),
		handler.NewHabitHandler(habitService, log),
		cfg.JWT.Secret,
		dbConn,
		publisher,
		consumer,
		log,
	)
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("habitrack is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down habitrack gracefully...")

	consumer.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("habitrack shutdown complete")
}
