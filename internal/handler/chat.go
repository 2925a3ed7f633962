package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"companionhk/internal/httputil"
	"companionhk/internal/service/chat"
)

// ChatHandler exposes the chat turn lifecycle over HTTP.
type ChatHandler struct {
	service *chat.Service
	logger  *slog.Logger
}

func NewChatHandler(service *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// Generate handles POST /api/chat/generate
func (h *ChatHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req chat.GenerateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.GenerateReply(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// History handles GET /api/chat/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	req := chat.HistoryRequest{
		UserID:   r.URL.Query().Get("user_id"),
		Role:     r.URL.Query().Get("role"),
		ThreadID: r.URL.Query().Get("thread_id"),
		Limit:    limit,
	}

	resp, err := h.service.GetHistory(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Clear handles POST /api/chat/clear
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req chat.ClearRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.ClearHistory(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
