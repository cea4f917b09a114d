package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/coupon"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/order"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/receipts"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cart store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zl.Fatal("Redis connection failed", zap.Error(err))
	}
	zl.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Signed-in carts outlive the Redis TTL in MongoDB when it is configured.
	var cartRepo repository.CartRepository
	if cfg.MongoURI != "" {
		mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			zl.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()

		mongoRepo := repository.NewMongoRepository(mongoDB)
		if err := mongoRepo.CreateIndexes(ctx); err != nil {
			zl.Fatal("Failed to create cart indexes", zap.Error(err))
		}
		cartRepo = mongoRepo
		zl.Info("Connected to MongoDB", zap.String("database", cfg.MongoDBName))
	}
	carts := service.NewCartService(cache.NewRedisCartStore(redisClient, cfg.CartTTL), cartRepo)

	// Receipts and outbox
	receiptsRepo, err := receipts.Open(ctx, cfg.ReceiptsDSN)
	if err != nil {
		zl.Fatal("Failed to open receipts database", zap.Error(err))
	}
	defer receiptsRepo.Close()
	if err := receiptsRepo.RunMigrations(); err != nil {
		zl.Fatal("Failed to run migrations", zap.Error(err))
	}
	zl.Info("Database migrations completed", zap.String("dialect", receipts.DialectFor(cfg.ReceiptsDSN)))

	// REST backend
	client, err := backend.NewClient("storefront-backend", cfg.BackendURL, backend.Options{
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Burst:   cfg.BackendBurst,
	})
	if err != nil {
		zl.Fatal("Failed to create backend client", zap.Error(err))
	}
	products := catalog.New(client, cfg.CatalogTTL).WithMaxPages(cfg.CatalogMaxPages)

	builder, err := order.NewBuilder(nil, cfg.CommissionRate)
	if err != nil {
		zl.Fatal("Failed to create order builder", zap.Error(err))
	}
	sessions := checkout.NewRegistry(&checkout.Deps{
		Carts:     carts,
		Coupons:   client,
		Catalog:   products,
		Orders:    client,
		Builder:   builder,
		Evaluator: coupon.NewEvaluator(),
		Recorder:  receiptsRepo,
	}, client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweepSessions(ctx, sessions, cfg.SessionIdleTTL)
	}()

	if cfg.KafkaEnabled() {
		outbox := publisher.NewOutboxPoller(receiptsRepo, cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		defer outbox.Close()
		statuses := poller.NewPoller(receiptsRepo, cfg.OrderStatusTopic, cfg.KafkaGroupID, cfg.KafkaBrokers...)
		defer statuses.Close()

		wg.Add(2)
		go func() {
			defer wg.Done()
			outbox.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			statuses.Run(ctx)
		}()
		zl.Info("Kafka workers started",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("events_topic", cfg.OrderEventsTopic),
			zap.String("status_topic", cfg.OrderStatusTopic))
	} else {
		zl.Info("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	// HTTP
	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Validator:          h.NewTokenValidator(cfg.JWTSecret),
		Logger:             zl,
	}, h.Handlers{
		Cart:     h.NewCartHandler(carts, products, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(sessions, cfg.RequestTimeout),
		Products: h.NewProductHandler(products, client, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(client, receiptsRepo, cfg.RequestTimeout),
	})
	if cfg.JWTSecret == "" {
		zl.Warn("JWT_SECRET not set, every request is served as a guest")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("Storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server error", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	zl.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	zl.Info("server exited")
}

// sweepSessions drops idle checkout sessions until ctx ends.
func sweepSessions(ctx context.Context, sessions *checkout.Registry, idle time.Duration) {
	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(idle); n > 0 {
				zap.L().Debug("swept idle checkout sessions", zap.Int("count", n))
			}
		}
	}
}
