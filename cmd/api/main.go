package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rigbuilderhq/rigbuilder-backend/api/routes"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/audit"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/auth"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/builds"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/checkout"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/ratelimit"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/stock"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/users"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/auth/session"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/config"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/logger"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/metrics"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/migrate"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	apiMetrics := metrics.NewAPIMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	limiter, err := ratelimit.NewLimiter(redisClient, map[string]ratelimit.Rule{
		ratelimit.ScopeLogin:          {Limit: cfg.AuthRateLimit.LoginLimit, Window: cfg.AuthRateLimit.LoginWindow},
		ratelimit.ScopeForgotPassword: {Limit: cfg.AuthRateLimit.ForgotPasswordLimit, Window: cfg.AuthRateLimit.ForgotPasswordWindow},
	}, apiMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate limiter", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	buildRepo := builds.NewRepository(dbClient.DB())
	stockRepo := stock.NewRepository(dbClient.DB())
	auditRepo := audit.NewRepository(dbClient.DB())

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(userRepo, dbClient, sessionManager, limiter, redisClient, auditService, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(stockRepo, productRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	buildService, err := builds.NewService(buildRepo, auditService, redisClient, cfg.Checkout.ReorderPrefillTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create build service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, productRepo, buildRepo, stockRepo, apiMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			apiMetrics,
			registry,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			productService,
			stockService,
			buildService,
			checkoutService,
			auditService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
