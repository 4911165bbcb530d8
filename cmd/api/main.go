package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/fooddelivery/internal/auth"
	"github.com/joao-fontenele/fooddelivery/internal/cart"
	"github.com/joao-fontenele/fooddelivery/internal/catalog"
	"github.com/joao-fontenele/fooddelivery/internal/config"
	"github.com/joao-fontenele/fooddelivery/internal/messaging"
	"github.com/joao-fontenele/fooddelivery/internal/orders"
	"github.com/joao-fontenele/fooddelivery/internal/telemetry"
)

const serviceName = "fooddelivery-api"

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := cfg.RequireDatabase(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if err := cfg.RequireAuth(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    serviceName,
		ServiceVersion: cfg.ServiceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		RuntimeMetrics: true,
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

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL, cfg.DBMaxOpenConns)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var publisher orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := messaging.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("failed to create event producer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Info("KAFKA_BROKERS not set, order events disabled")
	}

	cartSvc, err := cart.NewService(cart.NewCartRepository(db), logger)
	if err != nil {
		logger.Error("failed to create cart service", "error", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(orders.NewOrderRepository(db), publisher, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	verifier := auth.NewVerifier(cfg.JWTSecret, logger)
	public := telemetry.WithHTTPRoute
	private := func(h http.HandlerFunc) http.HandlerFunc {
		return telemetry.WithHTTPRoute(verifier.RequireAuth(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", tel.MetricsHandler)
	catalog.NewHandler(catalog.NewCatalogRepository(db), logger).Register(mux, public)
	cart.NewHandler(cartSvc, logger).Register(mux, private)
	orders.NewHandler(orderSvc, logger).Register(mux, private)

	var handler http.Handler = mux
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(handler, serviceName,
			otelhttp.WithSpanNameFormatter(telemetry.SpanName),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
