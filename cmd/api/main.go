package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/trackitco/support-dashboard/internal/adapters/primary/http"
	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/adapters/secondary/postgres"
	"github.com/trackitco/support-dashboard/internal/adapters/secondary/pusher"
	"github.com/trackitco/support-dashboard/internal/auth"
	"github.com/trackitco/support-dashboard/internal/config"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
	"github.com/trackitco/support-dashboard/internal/core/services"
	"github.com/trackitco/support-dashboard/internal/infrastructure/logging"
	"github.com/trackitco/support-dashboard/internal/infrastructure/tracing"
)

// pushTransport publishes events and signs channel subscriptions.
type pushTransport interface {
	ports.Publisher
	ports.ChannelAuthorizer
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		AddSource:   cfg.IsDevelopment(),
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	ctx := context.Background()

	// 3. Tracing
	shutdownTracing, err := tracing.InitTraceProvider(ctx, cfg.Telemetry.OTLPEndpoint, cfg.App.Name, cfg.App.Version)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	// 4. Migrations
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// 5. Initialize Database Pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 6. Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		general := mw.DefaultRateLimiterConfig()
		general.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		general.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(general)

		login := mw.AuthRateLimiterConfig()
		login.RequestsPerSecond = cfg.RateLimit.AuthRPS
		login.BurstSize = cfg.RateLimit.AuthBurst
		authRateLimiter = mw.NewRateLimiter(login)
	}

	// 7. Dependency Injection (Wiring the Hexagon)

	// Repositories (Secondary Adapters)
	ticketRepo := postgres.NewTicketRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)
	transactionRepo := postgres.NewCardTransactionRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	agentRepo := postgres.NewSupportAgentRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Push transport (Secondary Adapter)
	var push pushTransport
	if cfg.Pusher.Enabled() {
		push = pusher.NewPublisher(cfg.Pusher, logger)
		logger.Info("push transport enabled", "cluster", cfg.Pusher.Cluster)
	} else {
		push = pusher.NewLogPublisher(logger)
		logger.Info("push transport disabled, relying on pollers")
	}

	// Services (Core)
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	authenticator := services.NewAuthenticator(tokenManager, sessionRepo, cfg.Tokens.Secret, logger)
	accessPolicy := services.NewAccessPolicy(ticketRepo)
	supportAuthService := services.NewSupportAuthService(agentRepo, tokenManager)
	messageService := services.NewMessageService(ticketRepo, messageRepo, accessPolicy, txManager, push, logger)

	// Realtime
	feeds := realtime.NewStoreFeeds(ticketRepo, messageRepo, transactionRepo, realtime.Intervals{
		Tickets:      cfg.Realtime.TicketsInterval,
		Messages:     cfg.Realtime.MessagesInterval,
		Transactions: cfg.Realtime.TransactionsInterval,
	})
	registry := realtime.NewRegistry(authenticator, accessPolicy, feeds, logger)

	// Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:          logger,
		Authenticator:   authenticator,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RateLimiter:     generalRateLimiter,
		AuthRateLimiter: authRateLimiter,
		Health:          httpAdapter.NewHealthHandler(pool, registry, cfg.App.Version),
		WebSocket:       httpAdapter.NewWebSocketHandler(registry, cfg, logger),
		Streams: httpAdapter.NewStreamHandler(
			registry, authenticator, accessPolicy,
			cfg.Realtime.SSEKeepAlive, cfg.WebSocket.SendBufferSize,
			errorHandler, logger,
		),
		Messages:    httpAdapter.NewMessageHandler(messageService, errorHandler, logger),
		SupportAuth: httpAdapter.NewSupportAuthHandler(supportAuthService, !cfg.IsDevelopment(), errorHandler, logger),
		PusherAuth:  httpAdapter.NewPusherAuthHandler(push, accessPolicy, errorHandler, logger),
		Metrics:     promhttp.Handler(),
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Streams only end once their transport is closed, so the registry must
	// shut down alongside the listener rather than after it.
	registryDone := make(chan struct{})
	srv.RegisterOnShutdown(func() {
		defer close(registryDone)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := registry.Shutdown(ctx); err != nil {
			logger.Error("realtime shutdown error", "error", err)
		}
	})

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	<-registryDone

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("server shutdown complete")
}
