package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"companionhk/internal/domain"
	"companionhk/internal/httputil"
	"companionhk/internal/service/safety"
)

// SafetyHandler exposes the safety monitor for standalone evaluation.
type SafetyHandler struct {
	monitor *safety.Monitor
	logger  *slog.Logger
}

func NewSafetyHandler(monitor *safety.Monitor, logger *slog.Logger) *SafetyHandler {
	return &SafetyHandler{
		monitor: monitor,
		logger:  logger,
	}
}

type evaluateRequest struct {
	Message string `json:"message"`
}

func (r evaluateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 8000)),
	)
}

// Evaluate handles POST /api/safety/evaluate
func (h *SafetyHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	verdict := h.monitor.Evaluate(r.Context(), req.Message)
	httputil.RespondJSON(w, http.StatusOK, verdict)
}
