package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/browser"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/handler"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/identity"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/license"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/repository/sqlite"
	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/services"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"golang.org/x/oauth2"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repository
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Browser bridge is optional; without it browser actions reply with an error.
	var (
		chromeBrowser ports.Browser
		sidebarHost   ports.SidebarHost
	)
	if cfg.CDPURL != "" {
		chrome, err := browser.Connect(ctx, cfg.CDPURL, cfg.BaseURL, logger)
		if err != nil {
			logger.Warn("browser not available, continuing without it", "err", err)
		} else {
			defer chrome.Close()
			chromeBrowser, sidebarHost = chrome, chrome
		}
	}

	// Entitlement
	tokens := identity.NewStore(cfg.KeyringService)
	var refresh *oauth2.Config
	if cfg.GoogleClientID != "" {
		refresh = handler.OAuthConfig(cfg)
	}
	verifier := license.NewClient(ctx, cfg.LicenseURL, tokens.TokenSource(ctx, refresh))
	entitlement := services.NewEntitlementService(repo, verifier, chromeBrowser, cfg.CheckoutURL, logger)

	// Initialize Services
	coordinator := services.NewCoordinator(repo, chromeBrowser, sidebarHost, entitlement, logger)
	coordinator.InjectDelay = cfg.InjectDelay
	if err := coordinator.Install(ctx); err != nil {
		logger.Error("failed to prepare storage", "err", err)
		os.Exit(1)
	}
	collections := services.NewCollectionService(repo, coordinator, logger)

	// Initialize Router
	mux := handler.NewRouter(cfg, collections, coordinator, tokens, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "browser", chromeBrowser != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
