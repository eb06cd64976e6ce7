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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ajharbinger/lead-funnel/internal/api"
	"github.com/ajharbinger/lead-funnel/internal/logger"
	"github.com/ajharbinger/lead-funnel/internal/middleware"
	"github.com/ajharbinger/lead-funnel/internal/scoring"
	"github.com/ajharbinger/lead-funnel/internal/services"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	appLog := logger.NewLogger(cfg.Environment)
	defer func() { _ = appLog.Sync() }()

	registry, err := scoring.LoadRegistry(cfg.DefaultCalibration, cfg.CalibrationFile)
	if err != nil {
		appLog.Fatal("Failed to load calibrations", err, "file", cfg.CalibrationFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CalibrationFile != "" && cfg.WatchCalibration {
		go func() {
			if err := scoring.WatchCalibrationFile(ctx, cfg.CalibrationFile, registry, appLog); err != nil {
				appLog.Error("Calibration watcher stopped", err, "file", cfg.CalibrationFile)
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		appLog.Fatal("Invalid trusted proxies", err)
	}

	r.Use(middleware.LoggingMiddleware(appLog))
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(cfg))
	r.Use(middleware.InputValidationMiddleware(cfg.MaxRequestSize))
	if cfg.EnableRateLimit {
		r.Use(middleware.RateLimitingMiddleware(cfg.RateLimitPerMin))
	}
	r.Use(gin.Recovery())

	api.SetupRoutes(r, services.NewServices(registry, cfg, appLog), cfg, appLog)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"default_calibration", registry.DefaultID(),
			"auth", cfg.AuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Graceful shutdown failed", err)
	}
}
