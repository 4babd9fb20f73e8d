package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logging"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/settings"
	"github.com/ariefcatur/go-storefront/internal/shop"
	"github.com/ariefcatur/go-storefront/internal/state"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logging.New(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Client state
	backendState, closeState, err := openState(ctx, cfg, log)
	if err != nil {
		log.Fatal("open client state", zap.String("backend", cfg.StateBackend), zap.Error(err))
	}
	defer closeState()

	// REST backend + caches. A failed first load leaves the storefront empty
	// until POST /api/catalog/reload succeeds.
	be := backend.NewClient(cfg.BackendURL, backend.WithTimeout(cfg.BackendTimeout))
	cat := catalog.New(be, log)
	if err := cat.Load(ctx); err != nil {
		log.Warn("initial catalog load failed", zap.Error(err))
	}
	set := settings.New(be, log)
	if err := set.Load(ctx); err != nil {
		log.Warn("initial settings load failed", zap.Error(err))
	}

	opts := []checkout.Option{checkout.WithLogger(log)}

	// Kafka producer
	var prod *kafkax.Producer
	if cfg.KafkaEnabled {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, shop.TopicOrderPlaced, 1024, log)
		prod.Start(ctx)
		opts = append(opts, checkout.WithPublisher(kafkax.NewEmitter(prod, cfg.ServiceName)))
	}

	store := &httpx.StoreHandler{
		Catalog:  cat,
		Settings: set,
		Carts:    cart.NewSessions(backendState, log),
		State:    backendState,
		Checkout: checkout.New(be, cat, opts...),
		Log:      log,
	}
	adm := &httpx.AdminHandler{
		Console:  admin.New(be, log),
		State:    backendState,
		Catalog:  cat,
		Settings: set,
		Log:      log,
	}
	router := httpx.NewRouter(log)
	httpx.Mount(router, store, adm, cfg.CookieSecure)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("state", cfg.StateBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
}

func openState(ctx context.Context, cfg config.Config, log *zap.Logger) (state.Backend, func(), error) {
	switch cfg.StateBackend {
	case config.StateRedis:
		rdb := redisx.New(cfg.RedisAddr)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisx.NewStateStore(rdb), func() { _ = rdb.Close() }, nil
	case config.StatePostgres:
		store, pool, err := postgres.OpenStateStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, pool.Close, nil
	case config.StateMemory:
		log.Warn("client state kept in memory, carts are lost on restart")
		return state.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.StateBackend)
	}
}
