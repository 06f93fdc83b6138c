package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/hybrid-qa/internal/bootstrap"
	"github.com/kirillkom/hybrid-qa/internal/config"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-qa/internal/observability/logging"
	"github.com/kirillkom/hybrid-qa/internal/observability/metrics"
)

const serviceName = "qa-worker"

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	conn, err := nats.Connect(cfg.NATSURL, nats.Options{Name: serviceName}, logger)
	if err != nil {
		logger.Error("nats_connect_failed", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	workerMetrics := metrics.NewResponderMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	responder := nats.NewResponder(conn, cfg.NATSSubject, app.QueryUC,
		nats.WithResponderMetrics(serviceName, workerMetrics),
		nats.WithResponderLogger(logger),
		nats.WithHandlerTimeout(time.Duration(cfg.NATSRequestTimeoutMS)*time.Millisecond),
	)
	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "chunks", app.Size)
	if err := responder.Serve(ctx); err != nil {
		logger.Error("worker_serve_failed", "error", err)
	}
}
