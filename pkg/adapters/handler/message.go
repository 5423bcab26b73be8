package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"github.com/google/uuid"
)

const maxMessageBytes = 1 << 20

// MessageHandler is the HTTP end of the panel-to-coordinator channel. Every
// message gets exactly one reply, and failures travel inside the reply.
type MessageHandler struct {
	dispatcher ports.Dispatcher
	log        *slog.Logger
}

func NewMessageHandler(dispatcher ports.Dispatcher, logger *slog.Logger) *MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageHandler{dispatcher: dispatcher, log: logger}
}

func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		h.reply(w, http.StatusBadRequest, requestID, domain.Fail(domain.ErrInvalidPayload))
		return
	}

	req, err := domain.DecodeRequest(data)
	if err != nil {
		h.log.Warn("rejected message", "request_id", requestID, "err", err)
		h.reply(w, http.StatusBadRequest, requestID, domain.Fail(err))
		return
	}

	h.reply(w, http.StatusOK, requestID, h.dispatcher.Dispatch(r.Context(), req))
}

// Toggle is the keyboard-shortcut and toolbar entry point.
func (h *MessageHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	h.reply(w, http.StatusOK, requestID, h.dispatcher.Dispatch(r.Context(), domain.ToggleSidebar{}))
}

func (h *MessageHandler) reply(w http.ResponseWriter, status int, requestID string, resp domain.Response) {
	resp.RequestID = requestID
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
