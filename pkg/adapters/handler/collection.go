package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/view"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

// newCollectionID in a path asks AddAllTabs for a fresh collection.
const newCollectionID = "new"

type CollectionHandler struct {
	service ports.CollectionService
}

func NewCollectionHandler(service ports.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

type createCollectionRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type renameCollectionRequest struct {
	Name string `json:"name"`
}

type addPageRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type addCurrentPageRequest struct {
	Thumbnail bool `json:"thumbnail"`
}

type addTabsRequest struct {
	Name string `json:"name"`
}

type reorderCollectionsRequest struct {
	DraggedID string `json:"draggedId"`
	TargetID  string `json:"targetId"`
}

type reorderPagesRequest struct {
	DraggedURL string `json:"draggedUrl"`
	TargetURL  string `json:"targetUrl"`
}

type openAllRequest struct {
	Mode string `json:"mode"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type selectionRequest struct {
	Action string `json:"action"` // toggle, all or clear
	ID     string `json:"id"`
}

// ListCollections reloads from storage and returns the list.
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Load(r.Context()))
}

// View returns the render model of the panel for the current state.
func (h *CollectionHandler) View(w http.ResponseWriter, r *http.Request) {
	collections := h.service.Load(r.Context())
	writeJSON(w, http.StatusOK, view.Build(collections, h.service.State()))
}

func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	collection, err := h.service.CreateCollection(r.Context(), req.Name, req.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, collection)
}

func (h *CollectionHandler) RenameCollection(w http.ResponseWriter, r *http.Request) {
	var req renameCollectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	collection, err := h.service.RenameCollection(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteCollection(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

// Menu returns the context menu entries and the delete confirmation text.
func (h *CollectionHandler) Menu(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	collections := h.service.Load(r.Context())
	i := domain.IndexOf(collections, id)
	if i < 0 {
		writeServiceError(w, domain.ErrCollectionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":        view.ContextMenu(),
		"deletePrompt": view.DeletePrompt(collections[i]),
	})
}

func (h *CollectionHandler) ReorderCollections(w http.ResponseWriter, r *http.Request) {
	var req reorderCollectionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.ReorderCollection(r.Context(), req.DraggedID, req.TargetID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.Collections())
}

func (h *CollectionHandler) AddPage(w http.ResponseWriter, r *http.Request) {
	var req addPageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	page, err := h.service.AddURL(r.Context(), r.PathValue("id"), req.URL, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (h *CollectionHandler) AddCurrentPage(w http.ResponseWriter, r *http.Request) {
	var req addCurrentPageRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	page, err := h.service.AddCurrentPage(r.Context(), r.PathValue("id"), req.Thumbnail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// AddTabs saves every open tab into the collection, or into a new one when
// the id is "new".
func (h *CollectionHandler) AddTabs(w http.ResponseWriter, r *http.Request) {
	var req addTabsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	id := r.PathValue("id")
	if id == newCollectionID {
		id = ""
	}
	collection, added, err := h.service.AddAllTabs(r.Context(), id, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collection": collection, "added": added})
}

func (h *CollectionHandler) RemovePage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemovePage(r.Context(), r.PathValue("id"), r.PathValue("pageID")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) ReorderPages(w http.ResponseWriter, r *http.Request) {
	var req reorderPagesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.ReorderPage(r.Context(), r.PathValue("id"), req.DraggedURL, req.TargetURL); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) OpenAll(w http.ResponseWriter, r *http.Request) {
	var req openAllRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	mode, err := domain.ParseOpenMode(req.Mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := h.service.OpenAll(r.Context(), r.PathValue("id"), mode); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) ToggleExpanded(w http.ResponseWriter, r *http.Request) {
	h.service.ToggleExpanded(r.PathValue("id"))
	writeJSON(w, http.StatusOK, view.Build(h.service.Collections(), h.service.State()))
}

// Search applies the filter and returns the filtered render model.
func (h *CollectionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	collections := h.service.Load(r.Context())
	if req.Term == "" {
		h.service.ClearSearch()
	} else {
		h.service.SetSearch(req.Term)
	}
	writeJSON(w, http.StatusOK, view.Build(collections, h.service.State()))
}

func (h *CollectionHandler) Selection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	switch req.Action {
	case "toggle":
		h.service.ToggleSelected(req.ID)
	case "all":
		h.service.SelectAll()
	case "clear":
		h.service.ClearSelection()
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown selection action %q", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, h.service.State().Selected)
}

// Export downloads every collection as a JSON file.
func (h *CollectionHandler) Export(w http.ResponseWriter, r *http.Request) {
	file := h.service.Export(r.Context())
	writeExport(w, file, false)
}

func (h *CollectionHandler) ExportSelected(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.ExportSelected(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeExport(w, file, true)
}

func writeExport(w http.ResponseWriter, file domain.ExportFile, selected bool) {
	name := domain.ExportFilename(time.Now(), selected)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = writeIndented(w, file)
}

// Import reads an export file from the body; ?mode= is replace or merge.
func (h *CollectionHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode, err := domain.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	n, err := h.service.Import(r.Context(), data, mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": n, "mode": mode})
}
