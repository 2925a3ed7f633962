package voice

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"companionhk/internal/config"
	"companionhk/internal/domain"
	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
	"companionhk/internal/provider"
)

// SynthesizeRequest is one text-to-speech request.
type SynthesizeRequest struct {
	UserID            string `json:"user_id,omitempty"`
	Text              string `json:"text"`
	VoiceID           string `json:"voice_id,omitempty"`
	PreferredProvider string `json:"preferred_provider,omitempty"`
}

func (r SynthesizeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, 5000)),
	)
}

// SynthesizeResponse carries synthesized audio as base64.
type SynthesizeResponse struct {
	RequestID      string  `json:"request_id"`
	Provider       string  `json:"provider"`
	AudioBase64    string  `json:"audio_base64"`
	MimeType       string  `json:"mime_type"`
	Degraded       bool    `json:"degraded"`
	FallbackReason *string `json:"fallback_reason,omitempty"`
}

// TranscribeRequest is one speech-to-text request.
type TranscribeRequest struct {
	UserID            string `json:"user_id,omitempty"`
	AudioBase64       string `json:"audio_base64"`
	MimeType          string `json:"mime_type,omitempty"`
	PreferredProvider string `json:"preferred_provider,omitempty"`
}

func (r TranscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AudioBase64, validation.Required),
	)
}

// TranscribeResponse carries the recognized text.
type TranscribeResponse struct {
	RequestID      string  `json:"request_id"`
	Provider       string  `json:"provider"`
	Text           string  `json:"text"`
	Degraded       bool    `json:"degraded"`
	FallbackReason *string `json:"fallback_reason,omitempty"`
}

// Service walks the ordered voice provider chain until one succeeds. Each
// provider's failure reason is accumulated so the final fallback reason
// names every attempt.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	auditRepo repositories.AuditRepository
	resolver  *provider.Resolver
}

func NewService(cfg *config.Config, logger *slog.Logger, auditRepo repositories.AuditRepository, resolver *provider.Resolver) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		auditRepo: auditRepo,
		resolver:  resolver,
	}
}

// Synthesize converts text to audio using the first provider that produces
// output.
func (s *Service) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	requestID := uuid.NewString()
	if !s.cfg.VoiceAPIEnabled {
		reason := "voice_api_disabled"
		return &SynthesizeResponse{
			RequestID:      requestID,
			Provider:       "none",
			Degraded:       true,
			FallbackReason: &reason,
		}, nil
	}

	candidates := s.resolver.VoiceCandidates(req.PreferredProvider)
	var reasons []string
	for _, candidate := range candidates {
		audio, mimeType, err := candidate.Synthesize(ctx, req.Text, req.VoiceID)
		if err != nil {
			s.logger.Warn("tts provider failed",
				"provider", candidate.Name(),
				"request_id", requestID,
				"error", err)
			reasons = append(reasons, candidate.Name()+"_error")
			s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusFailed, candidate.Name()+"_error")
			continue
		}
		if len(audio) == 0 {
			reasons = append(reasons, candidate.Name()+"_no_audio")
			s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusFailed, candidate.Name()+"_no_audio")
			continue
		}

		s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusSuccess, "")
		return &SynthesizeResponse{
			RequestID:   requestID,
			Provider:    candidate.Name(),
			AudioBase64: base64.StdEncoding.EncodeToString(audio),
			MimeType:    mimeType,
		}, nil
	}

	reason := "all_voice_tts_providers_failed"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ",")
	}
	return &SynthesizeResponse{
		RequestID:      requestID,
		Provider:       "none",
		Degraded:       true,
		FallbackReason: &reason,
	}, nil
}

// Transcribe converts audio to text using the first provider that produces
// output.
func (s *Service) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: audio_base64 is not valid base64", domain.ErrValidation)
	}

	requestID := uuid.NewString()
	if !s.cfg.VoiceAPIEnabled {
		reason := "voice_api_disabled"
		return &TranscribeResponse{
			RequestID:      requestID,
			Provider:       "none",
			Degraded:       true,
			FallbackReason: &reason,
		}, nil
	}

	candidates := s.resolver.VoiceCandidates(req.PreferredProvider)
	var reasons []string
	for _, candidate := range candidates {
		text, err := candidate.Transcribe(ctx, audio, req.MimeType)
		if err != nil {
			s.logger.Warn("stt provider failed",
				"provider", candidate.Name(),
				"request_id", requestID,
				"error", err)
			reasons = append(reasons, candidate.Name()+"_error")
			s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusFailed, candidate.Name()+"_error")
			continue
		}
		if strings.TrimSpace(text) == "" {
			reasons = append(reasons, candidate.Name()+"_empty_text")
			s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusFailed, candidate.Name()+"_empty_text")
			continue
		}

		s.logProviderEvent(ctx, req.UserID, requestID, candidate.Name(), models.ProviderStatusSuccess, "")
		return &TranscribeResponse{
			RequestID: requestID,
			Provider:  candidate.Name(),
			Text:      text,
		}, nil
	}

	reason := "all_voice_stt_providers_failed"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, ",")
	}
	return &TranscribeResponse{
		RequestID:      requestID,
		Provider:       "none",
		Degraded:       true,
		FallbackReason: &reason,
	}, nil
}

// logProviderEvent records one voice attempt, best effort.
func (s *Service) logProviderEvent(ctx context.Context, userID, requestID, providerName string, status models.ProviderEventStatus, reason string) {
	event := &models.ProviderEvent{
		RequestID:    requestID,
		Scope:        models.ScopeVoice,
		ProviderName: providerName,
		Status:       status,
	}
	if userID != "" {
		event.UserID = &userID
	}
	if reason != "" {
		event.FallbackReason = &reason
	}
	if err := s.auditRepo.CreateProviderEvent(ctx, event); err != nil {
		s.logger.Warn("voice provider event write failed",
			"request_id", requestID,
			"error", err)
	}
}
