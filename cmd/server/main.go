package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sumire/storefront/internal/config"
	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/handler"
	"github.com/sumire/storefront/internal/logger"
	"github.com/sumire/storefront/internal/metrics"
	"github.com/sumire/storefront/internal/repository"
	"github.com/sumire/storefront/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.SetupDefault(os.Stdout, config.ParseLevel(cfg.LogLevel))

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewAccountRepository(db)

	authCfg := service.AuthConfig{
		Codec:   service.NewTokenCodec(cfg.SessionSecret, cfg.SessionTTL),
		Hasher:  service.NewPasswordHasher(cfg.BcryptCost),
		Metrics: collector,
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		authCfg.Google = service.NewGoogleProvider(service.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/api/auth/google/callback",
		})
	} else {
		slog.Info("google sign-in disabled")
	}

	authSvc := service.NewAuthService(userRepo, accountRepo, authCfg)
	userSvc := service.NewUserService(userRepo)

	limiter := handler.NewRateLimiter(handler.RateLimiterConfig{
		PerMinute: cfg.LoginRatePerMinute,
		Burst:     cfg.LoginRateBurst,
	}, collector)
	defer limiter.Stop()

	bridgeProviders := make([]domain.AuthProvider, 0, len(cfg.BridgeProviders))
	for _, p := range cfg.BridgeProviders {
		bridgeProviders = append(bridgeProviders, domain.AuthProvider(p))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.Register(e, handler.Routes{
		Auth:            authSvc,
		Users:           userSvc,
		SecureCookies:   cfg.IsProduction(),
		BridgeProviders: bridgeProviders,
		LoginLimiter:    limiter,
		Metrics:         metrics.Handler(reg),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serve(srv, cfg.Port)
}

func serve(srv *http.Server, port int) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
