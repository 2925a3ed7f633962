package provider

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"companionhk/internal/config"
)

func newResolver(cfg *config.Config) *Resolver {
	return NewResolver(cfg, slog.Default())
}

func TestResolveChatDefaultsToMock(t *testing.T) {
	resolver := newResolver(&config.Config{ChatProvider: "mock"})

	chat, degraded := resolver.ResolveChat()

	assert.Equal(t, "mock", chat.Name())
	assert.False(t, degraded)
}

func TestResolveChatMiniMaxConfigured(t *testing.T) {
	resolver := newResolver(&config.Config{
		ChatProvider:   "minimax",
		MiniMaxEnabled: true,
		MiniMaxAPIKey:  "key",
	})

	chat, degraded := resolver.ResolveChat()

	assert.Equal(t, "minimax", chat.Name())
	assert.False(t, degraded)
}

func TestResolveChatMiniMaxRequestedButMissingKey(t *testing.T) {
	resolver := newResolver(&config.Config{
		ChatProvider:   "minimax",
		MiniMaxEnabled: true,
	})

	chat, degraded := resolver.ResolveChat()

	assert.Equal(t, "mock", chat.Name())
	assert.True(t, degraded)
}

func TestResolveChatUnknownProviderName(t *testing.T) {
	resolver := newResolver(&config.Config{ChatProvider: "openai"})

	chat, degraded := resolver.ResolveChat()

	assert.Equal(t, "mock", chat.Name())
	assert.True(t, degraded)
}

func TestResolveSafetyClassifier(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantNil    bool
		wantReason string
	}{
		{
			name:       "monitor disabled",
			cfg:        config.Config{SafetyMonitorEnabled: false},
			wantNil:    true,
			wantReason: "safety_monitor_disabled",
		},
		{
			name:       "minimax not configured",
			cfg:        config.Config{SafetyMonitorEnabled: true},
			wantNil:    true,
			wantReason: "minimax_not_configured",
		},
		{
			name: "minimax configured",
			cfg:  config.Config{SafetyMonitorEnabled: true, MiniMaxEnabled: true, MiniMaxAPIKey: "key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier, reason := newResolver(&tt.cfg).ResolveSafetyClassifier()
			if tt.wantNil {
				assert.Nil(t, classifier)
				assert.Equal(t, tt.wantReason, reason)
			} else {
				assert.NotNil(t, classifier)
				assert.Empty(t, reason)
			}
		})
	}
}

func TestResolveMapsFallsBackToStub(t *testing.T) {
	resolver := newResolver(&config.Config{})

	maps, live := resolver.ResolveMaps()

	assert.Equal(t, "maps-stub", maps.Name())
	assert.False(t, live)
}

func TestResolveWeather(t *testing.T) {
	weather, live := newResolver(&config.Config{WeatherEnabled: true}).ResolveWeather()
	assert.Equal(t, "open-meteo", weather.Name())
	assert.True(t, live)

	weather, live = newResolver(&config.Config{}).ResolveWeather()
	assert.Equal(t, "weather-stub", weather.Name())
	assert.False(t, live)
}

func TestVoiceCandidatesOrdering(t *testing.T) {
	cfg := &config.Config{
		ElevenLabsEnabled:  true,
		ElevenLabsAPIKey:   "key",
		CantoneseAIEnabled: true,
		CantoneseAIAPIKey:  "key",
	}
	resolver := newResolver(cfg)

	candidates := resolver.VoiceCandidates("")
	assert.Len(t, candidates, 2)
	assert.Equal(t, "elevenlabs", candidates[0].Name())
	assert.Equal(t, "cantoneseai", candidates[1].Name())

	// Preferring a later provider moves it to the front.
	candidates = resolver.VoiceCandidates("cantoneseai")
	assert.Equal(t, "cantoneseai", candidates[0].Name())
	assert.Equal(t, "elevenlabs", candidates[1].Name())

	// Unknown names keep the default order.
	candidates = resolver.VoiceCandidates("nonexistent")
	assert.Equal(t, "elevenlabs", candidates[0].Name())
}

func TestVoiceCandidatesDisabled(t *testing.T) {
	candidates := newResolver(&config.Config{}).VoiceCandidates("")
	assert.Empty(t, candidates)
}

func TestStatuses(t *testing.T) {
	statuses := newResolver(&config.Config{ChatProvider: "mock"}).Statuses()

	assert.Equal(t, "mock", statuses["chat"])
	assert.Equal(t, "rules", statuses["safety"])
	assert.Equal(t, "maps-stub", statuses["maps"])
	assert.Equal(t, "weather-stub", statuses["weather"])
	assert.Equal(t, "retrieval-stub", statuses["retrieval"])
}
