package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"companionhk/internal/config"
)

const (
	elevenLabsTTSURL = "https://api.elevenlabs.io/v1/text-to-speech"
	elevenLabsSTTURL = "https://api.elevenlabs.io/v1/speech-to-text"

	cantoneseAITTSURL = "https://cantonese.ai/api/tts"
	cantoneseAISTTURL = "https://cantonese.ai/api/stt"

	defaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

// ElevenLabsProvider backs text-to-speech and speech-to-text via the
// ElevenLabs HTTP API.
type ElevenLabsProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewElevenLabsProvider(cfg *config.Config) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey: cfg.ElevenLabsAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
	}
}

func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize returns MP3 audio for the given text. An empty voiceID selects
// the default voice.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, string, error) {
	if voiceID == "" {
		voiceID = defaultElevenLabsVoiceID
	}

	payload, err := json.Marshal(map[string]string{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", elevenLabsTTSURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts request: status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read tts audio: %w", err)
	}
	return audio, "audio/mpeg", nil
}

type elevenLabsSTTResponse struct {
	Text string `json:"text"`
}

// Transcribe sends audio to the scribe model and returns the transcript.
func (p *ElevenLabsProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("model_id", "scribe_v1"); err != nil {
		return "", fmt.Errorf("write stt field: %w", err)
	}
	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return "", fmt.Errorf("create stt form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write stt audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close stt form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsSTTURL, &body)
	if err != nil {
		return "", fmt.Errorf("create stt request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt request: status %d", resp.StatusCode)
	}

	var parsed elevenLabsSTTResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return parsed.Text, nil
}

// CantoneseAIProvider backs Cantonese-focused speech via the cantonese.ai
// HTTP API.
type CantoneseAIProvider struct {
	apiKey     string
	httpClient *http.Client
}

func NewCantoneseAIProvider(cfg *config.Config) *CantoneseAIProvider {
	return &CantoneseAIProvider{
		apiKey: cfg.CantoneseAIAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
	}
}

func (p *CantoneseAIProvider) Name() string {
	return "cantoneseai"
}

func (p *CantoneseAIProvider) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, string, error) {
	body := map[string]string{
		"api_key": p.apiKey,
		"text":    text,
	}
	if voiceID != "" {
		body["voice_id"] = voiceID
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cantoneseAITTSURL, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tts request: status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read tts audio: %w", err)
	}
	return audio, "audio/wav", nil
}

type cantoneseAISTTResponse struct {
	Text string `json:"text"`
}

func (p *CantoneseAIProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("api_key", p.apiKey); err != nil {
		return "", fmt.Errorf("write stt field: %w", err)
	}
	part, err := writer.CreateFormFile("file", "audio")
	if err != nil {
		return "", fmt.Errorf("create stt form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write stt audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close stt form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cantoneseAISTTURL, &body)
	if err != nil {
		return "", fmt.Errorf("create stt request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt request: status %d", resp.StatusCode)
	}

	var parsed cantoneseAISTTResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode stt response: %w", err)
	}
	return parsed.Text, nil
}
