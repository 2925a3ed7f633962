package voice

import (
	"context"
	"encoding/base64"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionhk/internal/config"
	"companionhk/internal/domain/models"
	"companionhk/internal/provider"
)

type recordingAuditRepo struct {
	providerEvents []models.ProviderEvent
}

func (r *recordingAuditRepo) CreateProviderEvent(ctx context.Context, event *models.ProviderEvent) error {
	r.providerEvents = append(r.providerEvents, *event)
	return nil
}

func (r *recordingAuditRepo) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	return nil
}

func newVoiceService(cfg *config.Config) (*Service, *recordingAuditRepo) {
	logger := slog.Default()
	auditRepo := &recordingAuditRepo{}
	resolver := provider.NewResolver(cfg, logger)
	return NewService(cfg, logger, auditRepo, resolver), auditRepo
}

func TestSynthesizeDisabled(t *testing.T) {
	service, auditRepo := newVoiceService(&config.Config{})

	resp, err := service.Synthesize(context.Background(), SynthesizeRequest{Text: "hello"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, "none", resp.Provider)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, "voice_api_disabled", *resp.FallbackReason)
	assert.Empty(t, resp.AudioBase64)
	assert.Empty(t, auditRepo.providerEvents)
}

func TestSynthesizeNoConfiguredProviders(t *testing.T) {
	service, _ := newVoiceService(&config.Config{VoiceAPIEnabled: true})

	resp, err := service.Synthesize(context.Background(), SynthesizeRequest{Text: "hello"})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.Equal(t, "none", resp.Provider)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, "all_voice_tts_providers_failed", *resp.FallbackReason)
}

func TestSynthesizeValidation(t *testing.T) {
	service, _ := newVoiceService(&config.Config{VoiceAPIEnabled: true})

	_, err := service.Synthesize(context.Background(), SynthesizeRequest{})
	assert.Error(t, err)
}

func TestTranscribeDisabled(t *testing.T) {
	service, _ := newVoiceService(&config.Config{})

	audio := base64.StdEncoding.EncodeToString([]byte("not really audio"))
	resp, err := service.Transcribe(context.Background(), TranscribeRequest{AudioBase64: audio})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, "voice_api_disabled", *resp.FallbackReason)
}

func TestTranscribeRejectsBadBase64(t *testing.T) {
	service, _ := newVoiceService(&config.Config{VoiceAPIEnabled: true})

	_, err := service.Transcribe(context.Background(), TranscribeRequest{AudioBase64: "%%%not-base64%%%"})
	assert.Error(t, err)
}

func TestTranscribeNoConfiguredProviders(t *testing.T) {
	service, _ := newVoiceService(&config.Config{VoiceAPIEnabled: true})

	audio := base64.StdEncoding.EncodeToString([]byte("not really audio"))
	resp, err := service.Transcribe(context.Background(), TranscribeRequest{AudioBase64: audio})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, "all_voice_stt_providers_failed", *resp.FallbackReason)
}
