package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/config"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/notifier"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/shop"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	service := cfg.ServiceName + "-notifier"
	log, err := logging.New(service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping", zap.Error(err))
	}

	svc := &notifier.Service{Redis: rdb, ServiceName: service, Log: log}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, shop.TopicOrderPlaced, cfg.NotifierWorkers, log)

	log.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup),
		zap.String("topic", shop.TopicOrderPlaced),
		zap.Int("workers", cfg.NotifierWorkers))

	if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
		log.Error("consumer exit", zap.Error(err))
		return
	}
	log.Info("notifier stopped")
}
