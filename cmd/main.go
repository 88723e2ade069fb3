package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bluedex/internal/cache"
	"bluedex/internal/db"
	"bluedex/internal/kafka"
	"bluedex/internal/logger"
	"bluedex/internal/repository/postgresql"
	"bluedex/internal/server"
	"bluedex/internal/storage"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db.LoadEnv()

	database, err := db.NewDb(ctx)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()

	if err := db.SeedAdmin(ctx, database); err != nil {
		log.Fatal("admin seed failed", zap.Error(err))
	}

	orderRepo := postgresql.NewOrderRepo(database)
	historyRepo := postgresql.NewHistoryRepo(database)
	userRepo := postgresql.NewUserRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo()

	shipmentCache := cache.NewShipmentCache(orderRepo)
	if err := shipmentCache.Warmup(ctx); err != nil {
		log.Warn("cache warmup failed", zap.Error(err))
	}

	stg := storage.NewPostgresStorage(database, orderRepo, historyRepo, userRepo, outboxRepo, shipmentCache, log)

	var producer kafka.Producer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer = kafka.NewKafkaProducer(brokers)
	} else {
		producer = kafka.NewConsoleProducer(log)
	}
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    50,
		MaxAttempts:  5,
	}, log)

	srv := server.New(stg, userRepo, log)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "9000"
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, port)
	})
	g.Go(func() error {
		publisher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		publisher.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}
