package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fjod/artshop/internal/auth"
	"github.com/fjod/artshop/internal/cache"
	"github.com/fjod/artshop/internal/config"
	"github.com/fjod/artshop/internal/consumer"
	"github.com/fjod/artshop/internal/domain"
	h "github.com/fjod/artshop/internal/http"
	"github.com/fjod/artshop/internal/payment"
	"github.com/fjod/artshop/internal/publisher"
	"github.com/fjod/artshop/internal/repository"
	"github.com/fjod/artshop/internal/service"
	"github.com/fjod/artshop/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(logger.Options{Service: cfg.App.Name, Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)

	l.Info("artshop starting...")
	var wg sync.WaitGroup

	// Database setup
	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	db, err := repository.ConnectMongoDB(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, repository.ConnectOptions{
		ConnectTimeout:         cfg.Mongo.ConnectTimeout,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
		MaxPoolSize:            cfg.Mongo.MaxPoolSize,
		MinPoolSize:            cfg.Mongo.MinPoolSize,
	})
	connectCancel()
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	if cfg.Mongo.Migrate {
		if err := repository.RunMigrations(cfg.Mongo.URI, cfg.Mongo.Database); err != nil {
			l.Fatal("Failed to run migrations", zap.Error(err))
		}
		l.Info("Database migrations completed")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	orders := repository.NewOrderRepository(db)
	artworks := repository.NewArtworkRepository(db)
	users := repository.NewUserRepository(db)
	events := repository.NewEventRepository(db)

	orderCache := cache.NewRedisCache(rdb, cfg.Cache.OrderTTL)

	var tx repository.TxRunner
	txCtx, txCancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	supported, err := repository.SupportsTransactions(txCtx, db)
	txCancel()
	switch {
	case err != nil:
		l.Warn("could not detect transaction support, status events are appended after order writes", zap.Error(err))
	case supported:
		tx = repository.NewTxRunner(db)
	default:
		l.Warn("mongodb is standalone, status events are appended after order writes")
	}

	var payments payment.InfoProvider = payment.NoopProvider{}
	if cfg.PaymentEnabled() {
		payments = payment.NewTossClient(payment.TossConfig{
			BaseURL:          cfg.Payment.BaseURL,
			SecretKey:        cfg.Payment.SecretKey,
			Timeout:          cfg.Payment.Timeout,
			BreakerFailures:  cfg.Payment.BreakerFailures,
			BreakerOpenSleep: cfg.Payment.BreakerOpenSleep,
			OnStateChange: func(name, from, to string) {
				l.Warn("circuit breaker state changed",
					zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
			},
		})
	} else {
		l.Info("payment provider disabled, order views carry no payment panel")
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	orderService := service.NewOrderService(service.OrderDeps{
		Orders:      orders,
		Artworks:    artworks,
		Users:       users,
		Events:      events,
		Tx:          tx,
		Cache:       orderCache,
		Idempotency: cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL),
		Payments:    payments,
		Policy:      domain.NewTransitionPolicy(cfg.Orders.StrictTransitions),
		Logger:      l.Named("orders"),
	})
	cartService := service.NewCartService(cache.NewRedisCartStore(rdb, cfg.Cache.CartTTL), artworks, orderService, l.Named("cart"))
	authService := service.NewAuthService(users, tokens, l.Named("auth"))
	catalogService := service.NewCatalogService(artworks, orders)

	// Start Kafka publisher and cache invalidator
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var invalidator *consumer.CacheInvalidator
	if cfg.KafkaEnabled() {
		poller := publisher.NewOutboxPoller(
			events,
			publisher.NewKafkaWriter(cfg.Kafka.TopicEvents, cfg.Kafka.Brokers...),
			cfg.Kafka.PollEvery,
			l.Named("outbox"),
		)
		invalidator = consumer.NewCacheInvalidator(
			consumer.NewKafkaReader(cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup, cfg.Kafka.Brokers...),
			orderCache,
			l.Named("invalidator"),
		)

		wg.Add(2)
		go func() {
			defer wg.Done()
			poller.Run(workerCtx)
		}()
		go func() {
			defer wg.Done()
			invalidator.Run(workerCtx)
		}()
	} else {
		l.Info("kafka disabled, status events stay in the outbox")
	}

	router := h.NewRouter(h.RouterDeps{
		Logger:   l.Named("http"),
		Tokens:   tokens,
		Orders:   h.NewOrdersHandler(orderService, cfg.HTTP.RequestTimeout, cfg.Orders.RecentSalesLimit),
		Cart:     h.NewCartHandler(cartService, cfg.HTTP.RequestTimeout, cfg.Cache.CartTTL, cfg.HTTP.SecureCookies),
		Auth:     h.NewAuthHandler(authService, cfg.HTTP.RequestTimeout),
		Artworks: h.NewArtworkHandler(catalogService, cfg.HTTP.RequestTimeout),
		Health: map[string]h.HealthCheck{
			"mongo": func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodySize:    cfg.HTTP.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		l.Info("artshop listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}
	workerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		l.Info("workers stopped cleanly")
	case <-shutdownCtx.Done():
		l.Warn("workers didn't stop in time")
	}

	if invalidator != nil {
		invalidator.Close()
	}
	l.Info("server exited")
}
