package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/services"
)

const maxBodyBytes = 32 << 20 // exports carry thumbnails

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: message})
}

// writeServiceError maps controller errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound), errors.Is(err, domain.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicatePage):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidImport),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, services.ErrNothingSelected),
		errors.Is(err, services.ErrNoValidTabs):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoActiveTab):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrCoordinatorReply):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
