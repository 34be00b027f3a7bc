package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/api"
	"github.com/yourname/daybar/internal/billing"
	"github.com/yourname/daybar/internal/config"
	"github.com/yourname/daybar/internal/coordinator"
	"github.com/yourname/daybar/internal/feature"
	"github.com/yourname/daybar/internal/identity"
	"github.com/yourname/daybar/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	var (
		settings storage.SettingsRepository
		accounts storage.AccountRepository
	)
	switch cfg.DBType {
	case "postgres":
		settings, accounts, err = storage.NewPostgresRepositories(cfg.DBDSN, logger)
	default:
		if dir := filepath.Dir(cfg.SettingsFile); dir != "." {
			_ = os.MkdirAll(dir, 0o755)
		}
		settings, accounts, err = storage.NewFileRepositories(cfg.SettingsFile, cfg.AccountFile, logger)
	}
	if err != nil {
		logger.Errorf("failed to init storage: %v", err)
		os.Exit(1)
	}
	defer closeStore(settings)

	coord := coordinator.New(settings, accounts, nil, logger, coordinator.Options{
		SettleDelay:   cfg.TabSettleDelay,
		TrialDuration: cfg.TrialDuration,
	})
	defer coord.Close()

	if cfg.DBType != "postgres" {
		if reloader, ok := settings.(storage.SettingsReloader); ok {
			if err := coord.WatchSettingsFile(cfg.SettingsFile, reloader); err != nil {
				logger.Warnf("settings watcher unavailable: %v", err)
			}
		}
	}

	var provider identity.Provider
	var licenses billing.LicenseValidator
	var checkout billing.CheckoutProvider
	if cfg.Env == "development" {
		provider = identity.NewLocalProvider(cfg.LocalAuthToken, logger)
		licenses = billing.LocalLicenseValidator{}
	} else {
		provider = identity.NewRemoteProvider(cfg.AuthServiceURL, logger)
		licenses = billing.NewLicenseClient(cfg.LicenseServiceURL, logger)
	}
	checkout = billing.NewCheckoutClient(cfg.CheckoutServiceURL, logger)

	server := &api.Server{
		Log:      logger,
		Coord:    coord,
		Features: feature.New(accounts, logger),
		Setting:  settings,
		Account:  accounts,
		License:  licenses,
		Billing:  checkout,
		PriceID:  cfg.CheckoutPriceID,
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, server, provider)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		logger.Infof("daybard listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server stopped: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("forced shutdown: %v", err)
	}
}

func closeStore(s any) {
	if c, ok := s.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
