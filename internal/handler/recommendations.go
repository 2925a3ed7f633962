package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"companionhk/internal/httputil"
	"companionhk/internal/service/recommend"
)

// RecommendationHandler exposes scored place suggestions over HTTP.
type RecommendationHandler struct {
	service *recommend.Service
	logger  *slog.Logger
}

func NewRecommendationHandler(service *recommend.Service, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		logger:  logger,
	}
}

// Generate handles POST /api/recommendations/generate
func (h *RecommendationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req recommend.GenerateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Generate(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// History handles GET /api/recommendations/history
func (h *RecommendationHandler) History(w http.ResponseWriter, r *http.Request) {
	var requestIDs []string
	if raw := r.URL.Query().Get("request_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				requestIDs = append(requestIDs, id)
			}
		}
	}

	req := recommend.HistoryRequest{
		UserID:     r.URL.Query().Get("user_id"),
		Role:       r.URL.Query().Get("role"),
		RequestIDs: requestIDs,
	}

	resp, err := h.service.GetHistory(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
