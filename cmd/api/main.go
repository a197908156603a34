package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/floristeria-backend/api"
	"github.com/angelmondragon/floristeria-backend/api/routes"
	"github.com/angelmondragon/floristeria-backend/internal/cart"
	"github.com/angelmondragon/floristeria-backend/internal/catalog"
	"github.com/angelmondragon/floristeria-backend/internal/checkout"
	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/internal/users"
	wompiwebhook "github.com/angelmondragon/floristeria-backend/internal/webhooks/wompi"
	"github.com/angelmondragon/floristeria-backend/pkg/config"
	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/metrics"
	"github.com/angelmondragon/floristeria-backend/pkg/migrate"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox"
	"github.com/angelmondragon/floristeria-backend/pkg/redis"
	"github.com/angelmondragon/floristeria-backend/pkg/wompi"
)

const webhookGuardTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gateway, err := wompi.NewClient(cfg.Wompi)
	if err != nil {
		logg.Error(ctx, "failed to create wompi client", err)
		os.Exit(1)
	}

	catalogProvider, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create catalog provider", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledger, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Catalog:  catalogProvider,
		Contacts: usersRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(ordersRepo, dbClient, catalogProvider)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Repo:     ordersRepo,
		Ledger:   ledger,
		Tx:       dbClient,
		Gateway:  gateway,
		Contacts: usersRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	guard, err := wompiwebhook.NewDeliveryGuard(redisClient, webhookGuardTTL)
	if err != nil {
		logg.Error(ctx, "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := wompiwebhook.NewService(wompiwebhook.ServiceParams{
		Repo:          ordersRepo,
		Ledger:        ledger,
		Tx:            dbClient,
		Outbox:        outboxService,
		Guard:         guard,
		Gateway:       gateway,
		Metrics:       metrics.NewWebhookMetrics(registry),
		Secret:        cfg.Wompi.WebhookSecret,
		AllowUnsigned: cfg.Wompi.AllowUnsignedWebhooks,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}

	server := api.NewServer(cfg, routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		cartService,
		checkoutService,
		ledger,
		webhookService,
	))

	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": id,
	})
	if cfg.Wompi.AllowUnsignedWebhooks {
		logg.Warn(logCtx, "unsigned wompi webhooks are accepted")
	}
	logg.Info(logCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
		logg.Info(logCtx, "api server stopped")
	}
}
