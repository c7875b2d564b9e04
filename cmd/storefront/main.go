package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/looprex/checkout/internal/cart/cache"
	"github.com/looprex/checkout/internal/cart/poller"
	cartrepo "github.com/looprex/checkout/internal/cart/repository"
	cartsvc "github.com/looprex/checkout/internal/cart/service"
	"github.com/looprex/checkout/internal/checkout/catalog"
	"github.com/looprex/checkout/internal/checkout/publisher"
	"github.com/looprex/checkout/internal/checkout/repository"
	checkoutsvc "github.com/looprex/checkout/internal/checkout/service"
	"github.com/looprex/checkout/internal/checkout/submission"
	"github.com/looprex/checkout/internal/config"
	h "github.com/looprex/checkout/internal/http"
	"github.com/looprex/checkout/internal/pricing"
	"github.com/looprex/checkout/internal/telemetry"
	"github.com/looprex/checkout/pkg/apiclient"
	"github.com/looprex/checkout/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	orderNumber, err := pricing.OrderNumberStrategy(cfg.OrderNumberStrategy)
	if err != nil {
		return err
	}

	// Set up MongoDB connection
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cartrepo.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDBName,
		MaxPoolSize:    cfg.MongoMaxPoolSize,
		MinPoolSize:    cfg.MongoMinPoolSize,
		ConnectTimeout: cfg.MongoConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())

	carts := cartrepo.NewMongoRepository(mongoDB)
	if err := carts.CreateIndexes(ctx); err != nil {
		return err
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	repo, err := repository.NewRepository(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations completed", zap.String("driver", cfg.DBDriver))

	// Remote services
	productsAPI := apiclient.New("products", cfg.ProductsAPIURL, cfg.RequestTimeout, log)
	shoppingAPI := apiclient.New("shopping", cfg.ShoppingAPIURL, cfg.RequestTimeout, log)

	products := catalog.NewCachedCatalog(catalog.NewClient(productsAPI), redisClient, cfg.ProductCacheTTL, log)
	shopping := submission.NewShoppingClient(shoppingAPI)
	adapter := submission.NewAdapter(shopping, products, log)

	cartService := cartsvc.NewCartService(carts, cache.NewRedisCache(redisClient), products, log)
	checkoutService := checkoutsvc.NewCheckoutService(repo, cartService, products.Fresh(), adapter, shopping, log,
		checkoutsvc.WithOrderNumber(orderNumber),
	)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var workers sync.WaitGroup

	outbox := publisher.NewOutboxPoller(repo,
		publisher.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
		checkoutService,
		log.Named("outbox"),
		publisher.Config{
			EventTick:    cfg.OutboxInterval,
			RecoveryTick: cfg.RecoveryInterval,
			StuckAfter:   cfg.StuckAfter,
		},
	)
	cartPoller := poller.NewPoller(
		poller.NewReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID),
		cartService,
		log.Named("cart-poller"),
	)
	workers.Add(2)
	go func() {
		defer workers.Done()
		outbox.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		cartPoller.Run(workerCtx)
	}()

	// gRPC health server for the orchestrator
	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCHealthPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	go func() {
		log.Info("gRPC health server listening", zap.String("port", cfg.GRPCHealthPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC health server stopped", zap.Error(err))
		}
	}()
	go watchDependencies(workerCtx, healthServer, repo, redisClient, log)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(h.Services{
			Cart:     cartService,
			Checkout: checkoutService,
			Orders:   checkoutService,
		}, cfg.RequestTimeout, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-serverErr:
		log.Error("http server error", zap.Error(err))
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	stopWorkers()
	workers.Wait()
	outbox.Close()
	cartPoller.Close()

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", zap.Error(err))
	}
	log.Info("storefront stopped")
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// watchDependencies reports NOT_SERVING while the database or Redis is
// unreachable.
func watchDependencies(ctx context.Context, hs *health.Server, db pinger, rdb *redis.Client, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err := db.Ping(pingCtx); err != nil {
			log.Warn("database health check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis health check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}

	check()
	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}
