package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/chainpay/chainpay-backend/internal/adapter/chain"
	"github.com/chainpay/chainpay-backend/internal/adapter/repository/postgres"
	"github.com/chainpay/chainpay-backend/internal/config"
	"github.com/chainpay/chainpay-backend/internal/domain"
	"github.com/chainpay/chainpay-backend/internal/usecase/executor"
	"github.com/chainpay/chainpay-backend/internal/usecase/recurrence"
	"github.com/chainpay/chainpay-backend/internal/usecase/scheduler"
	"github.com/chainpay/chainpay-backend/internal/usecase/stats"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// 1. Setup Database
	db, err := postgres.NewDB(cfg.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	transferRepo := postgres.NewScheduledTransferRepository(db)
	recurringRepo := postgres.NewRecurringTransferRepository(db)

	// 3. Initialize the gateway client (authorization checker + chain executor)
	gateway := chain.NewGatewayClient(cfg.GatewayURL, cfg.GatewayToken, cfg.CallTimeout)

	// 4. Initialize Services (Use Cases)
	expander := recurrence.NewExpander(recurringRepo, transferRepo, logger)
	engine := executor.NewEngine(transferRepo, gateway, gateway, expander, cfg.CallTimeout, logger)
	engine.RegisterObserver(func(transfer *domain.ScheduledTransfer) {
		logger.Info("transfer reached terminal status",
			zap.String("transfer_id", transfer.ID.String()),
			zap.String("user_address", transfer.UserAddress),
			zap.String("status", string(transfer.Status)))
	})

	dueScheduler := scheduler.NewScheduler(transferRepo, engine, cfg.PollInterval, logger, prometheus.DefaultRegisterer)

	statsService := stats.NewService(transferRepo)
	ctx := context.Background()
	if transferStats, err := statsService.GetScheduledTransferStats(ctx, ""); err != nil {
		logger.Warn("failed to read transfer stats at startup", zap.Error(err))
	} else {
		logger.Info("scheduled transfer backlog",
			zap.Int("total", transferStats.Total),
			zap.Int("scheduled", transferStats.Scheduled),
			zap.Int("executing", transferStats.Executing))
	}

	// 5. Start the due-transfer scheduler (singleton per store)
	if err := dueScheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}

	// 6. Serve metrics
	metricsServer := &http.Server{
		Addr:    cfg.MetricsListenAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.MetricsListenAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server failed", zap.Error(err))
		}
	}()

	// 7. Start gRPC server (health + reflection liveness surface)
	grpcServer := grpclib.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.NewServer())
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.GRPCListenAddr), zap.Error(err))
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCListenAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("failed to serve gRPC server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(logger, dueScheduler, grpcServer, metricsServer)
}

// waitForShutdown waits for SIGTERM or SIGINT, stops the scheduler first so
// no new executions begin, then shuts down the listeners
func waitForShutdown(logger *zap.Logger, dueScheduler *scheduler.Scheduler, grpcServer *grpclib.Server, metricsServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("received signal, shutting down gracefully", zap.String("signal", sig.String()))

	dueScheduler.Stop()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
