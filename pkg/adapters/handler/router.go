package handler

import (
	"log/slog"
	"net/http"

	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, collections ports.CollectionService, dispatcher ports.Dispatcher, tokens TokenStore, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	ch := NewCollectionHandler(collections)
	mh := NewMessageHandler(dispatcher, logger)
	sh := NewSidebarHandler(collections, logger)
	authHandler := NewAuthHandler(cfg, tokens, logger)
	mw := NewMiddleware(cfg, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /sidebar.css", sh.Stylesheet)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	mux.Handle("GET /sidebar", mw.AuthMiddleware(http.HandlerFunc(sh.Page)))

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/messages", mh.Handle)
	protectedMux.HandleFunc("POST /api/v1/toggle", mh.Toggle)

	protectedMux.HandleFunc("GET /api/v1/view", ch.View)
	protectedMux.HandleFunc("GET /api/v1/collections", ch.ListCollections)
	protectedMux.HandleFunc("POST /api/v1/collections", ch.CreateCollection)
	protectedMux.HandleFunc("POST /api/v1/collections/reorder", ch.ReorderCollections)
	protectedMux.HandleFunc("PUT /api/v1/collections/{id}", ch.RenameCollection)
	protectedMux.HandleFunc("DELETE /api/v1/collections/{id}", ch.DeleteCollection)
	protectedMux.HandleFunc("GET /api/v1/collections/{id}/menu", ch.Menu)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/expand", ch.ToggleExpanded)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/open", ch.OpenAll)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/tabs", ch.AddTabs)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/pages", ch.AddPage)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/pages/current", ch.AddCurrentPage)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/pages/reorder", ch.ReorderPages)
	protectedMux.HandleFunc("DELETE /api/v1/collections/{id}/pages/{pageID}", ch.RemovePage)

	protectedMux.HandleFunc("POST /api/v1/search", ch.Search)
	protectedMux.HandleFunc("POST /api/v1/selection", ch.Selection)
	protectedMux.HandleFunc("GET /api/v1/export", ch.Export)
	protectedMux.HandleFunc("POST /api/v1/export/selected", ch.ExportSelected)
	protectedMux.HandleFunc("POST /api/v1/import", ch.Import)

	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	var handler http.Handler = mux
	handler = CORS(cfg)(handler)
	handler = mw.RequestLogger(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RequestID(handler)
	return handler
}
