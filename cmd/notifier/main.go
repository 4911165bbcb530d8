package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/fooddelivery/internal/config"
	"github.com/joao-fontenele/fooddelivery/internal/messaging"
	"github.com/joao-fontenele/fooddelivery/internal/notifier"
	"github.com/joao-fontenele/fooddelivery/internal/telemetry"
)

const serviceName = "fooddelivery-notifier"

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.RequireKafka(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: cfg.ServiceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	groupID := config.EnvDefault("NOTIFIER_GROUP_ID", "notification-worker")
	consumer, err := messaging.NewConsumer(cfg.KafkaBrokers, notifier.Topics, groupID, logger)
	if err != nil {
		logger.Error("failed to create consumer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = consumer.Close() }()

	// Metrics only; the worker has no other HTTP surface.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", tel.MetricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:        ":" + config.EnvDefault("NOTIFIER_METRICS_PORT", "9464"),
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	handler := notifier.NewNotificationHandler(logger)

	logger.Info("starting notification worker",
		"brokers", cfg.KafkaBrokers,
		"topics", notifier.Topics,
		"group_id", groupID,
	)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}

	logger.Info("consumer stopped")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
