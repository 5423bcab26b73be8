package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/view"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

//go:embed assets/sidebar.html assets/sidebar.css
var assets embed.FS

var sidebarTemplate = template.Must(template.New("sidebar.html").Funcs(template.FuncMap{
	// Thumbnails are data URLs, which html/template would otherwise rewrite.
	"imageURL": func(s string) template.URL { return template.URL(s) },
	"cssColor": func(s string) template.CSS { return template.CSS("background-color: " + s) },
}).ParseFS(assets, "assets/sidebar.html"))

type sidebarData struct {
	Model  view.Model
	Colors []string
}

// SidebarHandler serves the panel document loaded into the injected iframe.
type SidebarHandler struct {
	service ports.CollectionService
	log     *slog.Logger
}

func NewSidebarHandler(service ports.CollectionService, logger *slog.Logger) *SidebarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SidebarHandler{service: service, log: logger}
}

func (h *SidebarHandler) Page(w http.ResponseWriter, r *http.Request) {
	collections := h.service.Load(r.Context())
	data := sidebarData{
		Model:  view.Build(collections, h.service.State()),
		Colors: domain.PresetColors,
	}

	var buf bytes.Buffer
	if err := sidebarTemplate.Execute(&buf, data); err != nil {
		h.log.Error("rendering sidebar", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *SidebarHandler) Stylesheet(w http.ResponseWriter, r *http.Request) {
	css, err := assets.ReadFile("assets/sidebar.css")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(css)
}
