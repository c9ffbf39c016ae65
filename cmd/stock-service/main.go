package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/api"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/lock"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/messaging"
	outboxinfra "github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/outbox"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/platform/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := observability.NewLogger(config.ServiceName, cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("stock service stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting stock service",
		zap.String("http_port", cfg.HttpPort),
		zap.String("grpc_port", cfg.GrpcPort),
		zap.String("dispatch_mode", string(cfg.DispatchMode)))

	shutdownTracing, err := observability.SetupTracingSDK(ctx, observability.Settings{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		AuthHeader:     cfg.OtelAuthHeader,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error during tracing shutdown", zap.Error(err))
		}
	}()

	dbConn, err := sql.Open("pgx", cfg.PgDsn)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := dbConn.PingContext(ctx); err != nil {
		return err
	}
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		return err
	}

	// Repos
	stockRepo := db.NewPgStockRepository(dbConn)
	outboxRepo := db.NewPgOutboxRepository(dbConn)

	locationLock, closeLock := newLocationLock(cfg, logger)
	defer closeLock()

	buses := messaging.NewEventBuses(cfg.RabbitUri, cfg.QueuePrefix, logger)

	// Outbox writer + dispatcher + scheduler
	outboxWriter := application.NewOutboxWriter(outboxRepo, logger)
	dispatcher := outboxinfra.NewDispatcher(
		outboxRepo,
		buses.Producer,
		cfg.OutboxMaxRetry,
		cfg.OutboxBatchSize,
		logger,
	)
	schedulerDone := outboxinfra.NewScheduler(dispatcher, cfg.OutboxInterval(), logger).Start(ctx)

	stockSvc := application.NewStockService(stockRepo, locationLock, outboxWriter, application.StockServiceOptions{
		DispatchMode: cfg.DispatchMode,
		LockTTL:      cfg.LockTTL,
		SaveMaxRetry: cfg.SaveMaxRetry,
	}, logger)

	if err := messaging.RegisterLogisticsSubscriptions(
		ctx,
		buses.LogisticsConsumer,
		application.NewTaxStampsArrivedHandler(stockSvc, logger),
		application.NewTaxStampsDispatchedHandler(stockSvc, logger),
		logger,
	); err != nil {
		return err
	}
	if err := messaging.RegisterWithdrawalSubscriptions(
		ctx,
		buses.WithdrawalsConsumer,
		application.NewWithdrawalRequestedHandler(stockSvc, logger),
		logger,
	); err != nil {
		return err
	}

	// HTTP API
	mux := http.NewServeMux()
	api.NewServer(application.NewStockQueries(stockRepo), logger).RegisterRoutes(mux)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, err := api.NewGrpcServer(net.JoinHostPort("", cfg.GrpcPort), logger)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("HTTP listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	go func() {
		if err := grpcSrv.Serve(ctx); err != nil {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down stock service")
	case err = <-serveErr:
		logger.Error("server failed, shutting down", zap.Error(err))
		stop()
	}

	// report NOT_SERVING while the HTTP side drains
	grpcSrv.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpSrv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("http shutdown error", zap.Error(shutdownErr))
	}
	<-schedulerDone
	if stopErr := buses.Stop(); stopErr != nil {
		logger.Warn("event bus stop error", zap.Error(stopErr))
	}
	return err
}

// newLocationLock picks Redis when REDIS_ADDR is set, otherwise the
// in-process lock for single replica deployments.
func newLocationLock(cfg config.Config, logger *zap.Logger) (domain.LocationLock, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-process location lock")
		return lock.NewLocalLocationLock(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	logger.Info("using redis location lock", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedisLocationLock(client), func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}
}
