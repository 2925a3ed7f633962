package handler

import (
	"log/slog"
	"net/http"

	"companionhk/internal/httputil"
	"companionhk/internal/service/voice"
)

// VoiceHandler exposes text-to-speech and speech-to-text over HTTP.
type VoiceHandler struct {
	service *voice.Service
	logger  *slog.Logger
}

func NewVoiceHandler(service *voice.Service, logger *slog.Logger) *VoiceHandler {
	return &VoiceHandler{
		service: service,
		logger:  logger,
	}
}

// Synthesize handles POST /api/voice/tts
func (h *VoiceHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req voice.SynthesizeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Synthesize(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Transcribe handles POST /api/voice/stt
func (h *VoiceHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req voice.TranscribeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Transcribe(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
