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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sumire/storefront/internal/bridge"
	"github.com/sumire/storefront/internal/config"
	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/handler"
	"github.com/sumire/storefront/internal/logger"
	"github.com/sumire/storefront/internal/sm40"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bridge error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadBridge()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.SetupDefault(os.Stdout, config.ParseLevel(cfg.LogLevel))

	exchanger := sm40.NewExchanger(sm40.Config{
		AppID:      cfg.SM40AppID,
		AppSecret:  cfg.SM40AppSecret,
		BaseURL:    cfg.SM40BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger())
	e.Use(middleware.Recover())

	bridge.NewHandler(exchanger, domain.AuthProviderSM40, cfg.MainAppURL).Register(e)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("bridge starting", "port", cfg.Port, "main_app", cfg.MainAppURL)
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

	slog.Info("bridge stopped gracefully")
	return nil
}
