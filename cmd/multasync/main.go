package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multasync/internal/capture"
	"multasync/internal/config"
	"multasync/internal/connectivity"
	"multasync/internal/constants"
	"multasync/internal/database"
	"multasync/internal/models"
	"multasync/internal/queue"
	"multasync/internal/retry"
	"multasync/internal/session"
	"multasync/internal/syncer"
	"multasync/internal/tracing"
	"multasync/pkg/circuitbreaker"
	"multasync/pkg/multas"

	"github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("multasync %s\n", version)
		return
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *verbose, logger); err != nil {
		logger.WithError(err).Fatal("Service failed")
	}
}

func run(ctx context.Context, configPath string, verbose bool, logger *logrus.Logger) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setLogLevel(logger, cfg.LogLevel, verbose)
	logger.WithFields(logrus.Fields{
		"version": version,
		"api_url": cfg.API.BaseURL,
	}).Info("Starting multasync")

	tracingManager := tracing.NewManager(cfg.Tracing, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingManager.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shut down tracing")
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close record store")
		}
	}()

	sessions := session.NewManager(store, logger)
	current, err := resolveSession(ctx, sessions, logger)
	if err != nil {
		return err
	}

	apiClient := multas.NewClient(multas.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   current.Token,
	})

	oracle := connectivity.NewOracle(connectivity.InterfaceProbe{}, cfg.API.BaseURL, cfg.API.ProbeTimeoutSec, logger)

	breaker := circuitbreaker.New(
		"citation-api",
		uint32(cfg.Breaker.MaxFailures),
		time.Duration(cfg.Breaker.ResetTimeoutSec)*time.Second,
		logger,
	)

	offlineQueue := queue.New(store, current, logger)
	engine := syncer.New(offlineQueue, apiClient, oracle, breaker, cfg.API.SubmitTimeoutSec, logger)
	flow := capture.NewFlow(apiClient, offlineQueue, oracle, current, cfg.API.SubmitTimeoutSec, logger)

	server := NewServer(cfg, offlineQueue, engine, flow, oracle, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("diagnostics server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("multasync stopped")
	return nil
}

// openStore opens the local record store with backoff. The SQLite file
// lives on device flash; transient lock errors at boot are common when
// the previous process is still winding down.
func openStore(ctx context.Context, cfg *models.Config, logger *logrus.Logger) (*database.Store, error) {
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Jitter:       true,
	})

	var store *database.Store
	err := backoff.Retry(ctx, func() error {
		var openErr error
		store, openErr = database.New(cfg.Database.Path, cfg.Database.MaxPayloadKB)
		if openErr != nil {
			logger.WithError(openErr).Warn("Record store open failed, retrying")
		}
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// resolveSession loads the persisted officer session, falling back to
// the MULTASYNC_OFFICER_ID environment variable on a fresh device. The
// queue stamps every record with the officer id, so running without one
// is not allowed.
func resolveSession(ctx context.Context, sessions *session.Manager, logger *logrus.Logger) (*models.Session, error) {
	current, err := sessions.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if current != nil {
		logger.WithField("officer_id", current.OfficerID).Info("Resumed stored session")
		return current, nil
	}

	officerID := os.Getenv("MULTASYNC_OFFICER_ID")
	if officerID == "" {
		return nil, fmt.Errorf("no stored session and MULTASYNC_OFFICER_ID is not set")
	}

	current = &models.Session{
		OfficerID:  officerID,
		Token:      os.Getenv("MULTASYNC_API_TOKEN"),
		LoggedInAt: time.Now(),
	}
	if err := sessions.Save(ctx, current); err != nil {
		logger.WithError(err).Warn("Failed to persist bootstrap session")
	}

	logger.WithField("officer_id", officerID).Info("Bootstrapped session from environment")
	return current, nil
}

func setLogLevel(logger *logrus.Logger, level string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(parsed)
}
