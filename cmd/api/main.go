package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wolfman30/homewellness-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/homewellness-booking/internal/config"
	"github.com/wolfman30/homewellness-booking/pkg/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting homewellness booking API",
		"env", cfg.Env,
		"port", cfg.Port,
		"mindbody_configured", cfg.MindbodyConfigured(),
		"timezone", cfg.Location().String(),
	)

	srv, rt := newServer(context.Background(), cfg, logger)
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("runtime close failed", "error", err)
		}
	}()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newServer(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*http.Server, *bootstrap.Runtime) {
	rt := bootstrap.BuildRuntime(ctx, cfg, logger, nil)
	// Provider calls can take most of MindbodyTimeout, so the write
	// deadline has to outlast it.
	writeTimeout := cfg.MindbodyTimeout + 15*time.Second
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(rt.Handler, "homewellness-booking"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}, rt
}
