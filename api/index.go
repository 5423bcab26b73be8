package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/handler"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/repository/sqlite"
	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/services"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Serverless storage must be remote: libsql:// or postgres:// in DATABASE_URL.
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	// No browser is reachable here, so only storage-backed routes do real work.
	entitlement := services.NewEntitlementService(repo, nil, nil, cfg.CheckoutURL, logger)
	coordinator := services.NewCoordinator(repo, nil, nil, entitlement, logger)
	if err := coordinator.Install(context.Background()); err != nil {
		panic(err)
	}
	collections := services.NewCollectionService(repo, coordinator, logger)
	mux = handler.NewRouter(cfg, collections, coordinator, nil, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
