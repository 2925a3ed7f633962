package provider

import (
	"log/slog"

	"companionhk/internal/config"
)

// Resolver owns provider construction and the enabled/configured gating that
// selects a live provider or its stub for each concern. Resolution never
// fails; a disabled or misconfigured live provider degrades to its fallback.
type Resolver struct {
	cfg    *config.Config
	logger *slog.Logger

	minimax   *MiniMaxProvider
	mockChat  *MockChatProvider
	mapsLive  *GoogleMapsProvider
	mapsStub  *StubMapsProvider
	weather   *OpenMeteoProvider
	wxStub    *StubWeatherProvider
	retrieval *ExaProvider
	retStub   *StubRetrievalProvider
	elevenNew *ElevenLabsProvider
	cantonese *CantoneseAIProvider
}

// NewResolver builds every provider once from config.
func NewResolver(cfg *config.Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg,
		logger:    logger,
		minimax:   NewMiniMaxProvider(cfg),
		mockChat:  NewMockChatProvider(),
		mapsLive:  NewGoogleMapsProvider(cfg),
		mapsStub:  NewStubMapsProvider(),
		weather:   NewOpenMeteoProvider(cfg),
		wxStub:    NewStubWeatherProvider(),
		retrieval: NewExaProvider(cfg),
		retStub:   NewStubRetrievalProvider(),
		elevenNew: NewElevenLabsProvider(cfg),
		cantonese: NewCantoneseAIProvider(cfg),
	}
}

func (r *Resolver) minimaxConfigured() bool {
	return r.cfg.MiniMaxEnabled && r.cfg.MiniMaxAPIKey != ""
}

// ResolveChat returns the chat provider for this deployment. The second
// return is true when the configured provider name does not match the
// selected provider, so the mock stood in for it.
func (r *Resolver) ResolveChat() (ChatProvider, bool) {
	if r.cfg.ChatProvider == r.minimax.Name() && r.minimaxConfigured() {
		return r.minimax, false
	}
	degraded := r.cfg.ChatProvider != "" && r.cfg.ChatProvider != r.mockChat.Name()
	return r.mockChat, degraded
}

// ResolveSafetyClassifier returns the model-backed classifier, or nil with
// the reason the rule engine must stand in.
func (r *Resolver) ResolveSafetyClassifier() (SafetyClassifier, string) {
	if !r.cfg.SafetyMonitorEnabled {
		return nil, "safety_monitor_disabled"
	}
	if !r.minimaxConfigured() {
		return nil, "minimax_not_configured"
	}
	return r.minimax, ""
}

// ResolveMaps returns the live maps provider when enabled and keyed, else the
// stub. The second return is true when the live provider was selected.
func (r *Resolver) ResolveMaps() (MapsProvider, bool) {
	if r.cfg.GoogleMapsEnabled && r.cfg.GoogleMapsAPIKey != "" {
		return r.mapsLive, true
	}
	return r.mapsStub, false
}

// ResolveWeather returns the live weather provider when enabled, else the
// stub. Open-Meteo needs no API key.
func (r *Resolver) ResolveWeather() (WeatherProvider, bool) {
	if r.cfg.WeatherEnabled {
		return r.weather, true
	}
	return r.wxStub, false
}

// ResolveRetrieval returns the live web search provider when enabled and
// keyed, else the stub.
func (r *Resolver) ResolveRetrieval() (RetrievalProvider, bool) {
	if r.cfg.ExaEnabled && r.cfg.ExaAPIKey != "" {
		return r.retrieval, true
	}
	return r.retStub, false
}

// VoiceCandidates returns the enabled voice providers in attempt order. A
// preferred provider name moves that provider to the front; unknown names
// leave the default order untouched.
func (r *Resolver) VoiceCandidates(preferred string) []VoiceProvider {
	var candidates []VoiceProvider
	if r.cfg.ElevenLabsEnabled && r.cfg.ElevenLabsAPIKey != "" {
		candidates = append(candidates, r.elevenNew)
	}
	if r.cfg.CantoneseAIEnabled && r.cfg.CantoneseAIAPIKey != "" {
		candidates = append(candidates, r.cantonese)
	}

	if preferred == "" {
		return candidates
	}
	for i, candidate := range candidates {
		if candidate.Name() == preferred && i > 0 {
			reordered := make([]VoiceProvider, 0, len(candidates))
			reordered = append(reordered, candidate)
			reordered = append(reordered, candidates[:i]...)
			reordered = append(reordered, candidates[i+1:]...)
			return reordered
		}
	}
	return candidates
}

// Statuses reports which provider backs each concern, for the health surface.
func (r *Resolver) Statuses() map[string]string {
	chat, _ := r.ResolveChat()
	maps, _ := r.ResolveMaps()
	weather, _ := r.ResolveWeather()
	retrieval, _ := r.ResolveRetrieval()

	safetyName := "rules"
	if classifier, _ := r.ResolveSafetyClassifier(); classifier != nil {
		safetyName = classifier.Name()
	}

	return map[string]string{
		"chat":      chat.Name(),
		"safety":    safetyName,
		"maps":      maps.Name(),
		"weather":   weather.Name(),
		"retrieval": retrieval.Name(),
	}
}
