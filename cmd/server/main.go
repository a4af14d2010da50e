package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"dinendash-system/config"
	"dinendash-system/internal/background"
	"dinendash-system/internal/cache"
	"dinendash-system/internal/database"
	"dinendash-system/internal/gateway"
	"dinendash-system/internal/gateway/handlers"
	"dinendash-system/internal/gateway/middleware"
	"dinendash-system/internal/logging"
	"dinendash-system/internal/notify"
	"dinendash-system/internal/services/auth"
	"dinendash-system/internal/services/settlement"
	"dinendash-system/internal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()
	redisClient, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	db, err := database.NewConnection(cfg.DB.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to connect to db", zap.Error(err))
	}
	if err := database.MigrateDiningDB(db); err != nil {
		logger.Fatal("Failed to migrate dining database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	defer sqlDB.Close()

	deps := []dependency{
		{name: "postgres", ping: sqlDB.PingContext},
		{name: "redis", ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}

	publisher, amqpPub, err := buildPublisher(cfg, redisClient)
	if err != nil {
		logger.Fatal("Failed to set up notifications", zap.Error(err))
	}
	if amqpPub != nil {
		defer amqpPub.Close()
		deps = append(deps, dependency{name: "rabbitmq", ping: func(context.Context) error { return amqpPub.Ping() }})
	}

	runner := background.NewRunner(logger, cfg.Settlement.TaskTimeout)

	ledger := database.NewLedger(db)
	rates := cache.NewTaxRates(redisClient, ledger, decimal.NewFromFloat(cfg.Settlement.DefaultTaxRate), cfg.Settlement.TaxCacheTTL, logger)
	settlementSvc := settlement.NewService(settlement.Deps{
		Ledger:   ledger,
		Rates:    rates,
		Notifier: notify.NewDispatcher(publisher, runner, logger),
		Tasks:    runner,
		Logger:   logger,
	})

	tokens := utils.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authSvc := auth.NewService(database.NewUserStore(db), tokens, logger)

	limit, err := middleware.RateLimit(cfg.Server.RateLimit)
	if err != nil {
		logger.Fatal("Failed to build rate limiter", zap.Error(err))
	}

	r := gateway.NewRouter(gateway.RouterDeps{
		Orders:    handlers.NewOrderHTTPHandler(settlementSvc, logger),
		Auth:      handlers.NewAuthHTTPHandler(authSvc, logger),
		Tokens:    tokens,
		RateLimit: limit,
		Logger:    logger,
	})
	r.GET("/health", healthCheckHandler())
	r.GET("/health/detailed", detailedHealthCheckHandler(deps))

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("port", cfg.Server.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	probeCtx, stopProbes := context.WithCancel(ctx)
	defer stopProbes()
	go watchDependencies(probeCtx, healthServer, deps, 15*time.Second, logger)

	go func() {
		logger.Info("gRPC health service listening", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	stopProbes()
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	runner.Close()
}

// buildPublisher returns the notification transport selected by NOTIFY_DRIVER.
// The AMQP publisher is returned separately so its connection can be probed
// and closed.
func buildPublisher(cfg config.Config, redisClient *redis.Client) (notify.Publisher, *notify.AMQPPublisher, error) {
	driver := cfg.Settlement.NotifyDriver

	var pubs notify.Multi
	if driver == "redis" || driver == "both" {
		pubs = append(pubs, notify.NewRedisPublisher(redisClient))
	}

	var amqpPub *notify.AMQPPublisher
	if driver == "amqp" || driver == "both" {
		p, err := notify.DialAMQP(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, err
		}
		amqpPub = p
		pubs = append(pubs, p)
	}

	if len(pubs) == 1 {
		return pubs[0], amqpPub, nil
	}
	return pubs, amqpPub, nil
}
