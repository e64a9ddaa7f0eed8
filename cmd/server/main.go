package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/retailstore/payment-service/internal/application/services"
	"github.com/retailstore/payment-service/internal/config"
	"github.com/retailstore/payment-service/internal/infrastructure/gateway"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence"
	"github.com/retailstore/payment-service/internal/infrastructure/persistence/postgres"
	"github.com/retailstore/payment-service/internal/interfaces/rest"
	"github.com/retailstore/payment-service/internal/interfaces/rest/middleware"
	"github.com/retailstore/payment-service/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := postgres.NewPaymentRepository(db.Pool)
	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)

	processService := services.NewProcessService(paymentRepo, gatewayClient, logger)
	refundService := services.NewRefundService(paymentRepo, gatewayClient, logger)
	queryService := services.NewQueryService(paymentRepo)

	h := rest.NewPaymentHandler(processService, refundService, queryService, logger)

	router := chi.NewRouter()
	h.RegisterRoutes(router)

	handler := middleware.Recovery(logger)(router)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reconciler := worker.NewReconciler(
		paymentRepo,
		gatewayClient,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		cfg.Worker.PendingAge,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go reconciler.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
