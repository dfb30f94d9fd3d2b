package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/sharedtable/fare/internal/auth"
	"github.com/sharedtable/fare/internal/config"
	"github.com/sharedtable/fare/internal/events"
	"github.com/sharedtable/fare/internal/matching"
	"github.com/sharedtable/fare/internal/middleware"
	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/service"
	"github.com/sharedtable/fare/internal/storage/sqlite"
	"github.com/sharedtable/fare/pkg/api"
	"github.com/sharedtable/fare/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./fare.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if cfg.JWTSecret == "" {
		logger.Error("jwt_secret is required (set FARE_JWT_SECRET)")
		os.Exit(1)
	}

	policies, err := cfg.PolicyTable()
	if err != nil {
		logger.Error("Invalid group size policies", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.DatabasePath)

	seeded, err := store.SeedRestaurants(context.Background(), cfg.SeedRestaurants())
	if err != nil {
		logger.Error("Failed to seed restaurants", "error", err)
		os.Exit(1)
	}
	if seeded > 0 {
		logger.Info("Restaurants seeded", "count", seeded)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange, logger)
		if err != nil {
			logger.Error("Failed to connect to event broker", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("Publishing events", "exchange", cfg.EventsExchange)
	}

	matcher := matching.New(store, policies, publisher,
		matching.WithLogger(logger),
		matching.WithConcurrency(cfg.MatchConcurrency),
		matching.WithTimeout(cfg.MatchTimeout),
	)

	// Reopen slots left in matching by a previous process.
	if _, err := matcher.RecoverStale(context.Background()); err != nil {
		logger.Error("Failed to recover time slots", "error", err)
		os.Exit(1)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store, cfg.OperatorEmails...)
	rpcLogging := middleware.LoggingInterceptor(logger)

	mux := http.NewServeMux()

	// Register Connect services
	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(authenticator, jwtManager, logger),
		connect.WithInterceptors(rpcLogging),
	))
	mux.Handle(api.NewSlotServiceHandler(
		service.NewSlotService(store, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager), rpcLogging),
	))
	mux.Handle(api.NewMatchingServiceHandler(
		service.NewMatchingService(matcher, logger),
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager),
			middleware.RequireRole(models.RoleOperator),
			rpcLogging,
		),
	))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(logger, corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	h2cHandler := h2c.NewHandler(loggedHandler, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In-flight matching runs get their full timeout to finish their slot.
	shutdownTimeout := cfg.MatchTimeout + 5*time.Second
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("Shutting down", "timeout", shutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	logger.Info("Connect server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	logger.Info("Server stopped")
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		logger.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
