package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obiagwu/vendara-backend/internal/notifications"
	"github.com/obiagwu/vendara-backend/internal/orders"
	"github.com/obiagwu/vendara-backend/internal/settlement"
	"github.com/obiagwu/vendara-backend/internal/warehouse"
	"github.com/obiagwu/vendara-backend/pkg/config"
	"github.com/obiagwu/vendara-backend/pkg/db"
	"github.com/obiagwu/vendara-backend/pkg/logger"
	"github.com/obiagwu/vendara-backend/pkg/metrics"
	"github.com/obiagwu/vendara-backend/pkg/migrate"
	"github.com/obiagwu/vendara-backend/pkg/outbox"
	"github.com/obiagwu/vendara-backend/pkg/outbox/idempotency"
	"github.com/obiagwu/vendara-backend/pkg/paystack"
	"github.com/obiagwu/vendara-backend/pkg/pubsub"
	"github.com/obiagwu/vendara-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		os.Exit(1)
	}

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(ctx, "failed to create paystack client", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create notification service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.NewRepository(dbClient.DB()), paystackClient, notificationService, dbClient, emitter)
	if err != nil {
		logg.Error(ctx, "failed to create settlement service", err)
		os.Exit(1)
	}

	warehouseService, err := warehouse.NewService(warehouse.NewRepository(dbClient.DB()), ordersRepo, dbClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create warehouse service", err)
		os.Exit(1)
	}

	idempotencyManager := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	consumerMetrics := metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)

	routingConsumer, err := warehouse.NewConsumer(warehouseService, pubsubClient.RoutingSubscription(), idempotencyManager, consumerMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create routing consumer", err)
		os.Exit(1)
	}

	settlementConsumer, err := settlement.NewConsumer(settlementService, pubsubClient.SettlementSubscription(), idempotencyManager, consumerMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create settlement consumer", err)
		os.Exit(1)
	}

	notificationConsumer, err := notifications.NewConsumer(notificationService, ordersRepo, pubsubClient.NotificationSubscription(), idempotencyManager, consumerMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notification consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:               cfg,
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		RoutingConsumer:      routingConsumer,
		SettlementConsumer:   settlementConsumer,
		NotificationConsumer: notificationConsumer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}
	defer func() {
		if err := service.Close(); err != nil {
			logg.Error(context.Background(), "error closing worker clients", err)
		}
	}()

	go serveMetrics(ctx, logg)

	logg.Info(ctx, "starting worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger) {
	port := os.Getenv("METRICS_PORT")
	if port == "" {
		port = "9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped unexpectedly", err)
	}
}
