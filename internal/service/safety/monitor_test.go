package safety

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionhk/internal/config"
	"companionhk/internal/domain/models"
	"companionhk/internal/provider"
)

func testMonitor(cfg *config.Config) *Monitor {
	logger := slog.Default()
	return NewMonitor(provider.NewResolver(cfg, logger), logger)
}

func TestEvaluateMonitorDisabled(t *testing.T) {
	cfg := &config.Config{SafetyMonitorEnabled: false}
	monitor := testMonitor(cfg)

	verdict := monitor.Evaluate(context.Background(), "hello there")

	assert.True(t, verdict.Degraded)
	require.NotNil(t, verdict.FallbackReason)
	assert.Equal(t, "safety_monitor_disabled", *verdict.FallbackReason)
	assert.Equal(t, "rules", verdict.MonitorProvider)
	assert.Equal(t, models.RiskLow, verdict.RiskLevel)
}

func TestEvaluateClassifierNotConfigured(t *testing.T) {
	cfg := &config.Config{SafetyMonitorEnabled: true, MiniMaxEnabled: false}
	monitor := testMonitor(cfg)

	verdict := monitor.Evaluate(context.Background(), "I want to hurt myself")

	assert.True(t, verdict.Degraded)
	require.NotNil(t, verdict.FallbackReason)
	assert.Equal(t, "minimax_not_configured", *verdict.FallbackReason)
	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	assert.Equal(t, models.PolicySupportiveRefusal, verdict.PolicyAction)
	assert.True(t, verdict.ShowCrisisBanner)
}

func TestExtractJSONObject(t *testing.T) {
	parsed, err := extractJSONObject("Sure, here you go: {\"risk_level\": \"low\"} hope that helps")
	require.NoError(t, err)
	assert.Equal(t, "low", parsed["risk_level"])
}

func TestExtractJSONObjectNoBraces(t *testing.T) {
	_, err := extractJSONObject("I cannot classify that.")
	assert.ErrorIs(t, err, errNoJSONObject)
}

func TestExtractJSONObjectMalformed(t *testing.T) {
	_, err := extractJSONObject("{not json}")
	assert.ErrorIs(t, err, errNoJSONObject)
}

func TestBuildModelVerdictCoercesUnknownFields(t *testing.T) {
	verdict := buildModelVerdict(map[string]any{
		"risk_level":    "catastrophic",
		"policy_action": "shutdown",
	}, "minimax")

	assert.Equal(t, models.RiskLow, verdict.RiskLevel)
	assert.Equal(t, models.PolicyAllow, verdict.PolicyAction)
	assert.False(t, verdict.ShowCrisisBanner)
	assert.False(t, verdict.Degraded)
	assert.Equal(t, "minimax", verdict.MonitorProvider)
}

func TestBuildModelVerdictHighNeverAllows(t *testing.T) {
	verdict := buildModelVerdict(map[string]any{
		"risk_level":    "high",
		"policy_action": "allow",
	}, "minimax")

	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	assert.Equal(t, models.PolicySupportiveRefusal, verdict.PolicyAction)
	assert.True(t, verdict.ShowCrisisBanner)
}

func TestBuildModelVerdictBannerOnEscalate(t *testing.T) {
	verdict := buildModelVerdict(map[string]any{
		"risk_level":    "medium",
		"policy_action": "escalate_banner",
	}, "minimax")

	assert.Equal(t, models.RiskMedium, verdict.RiskLevel)
	assert.True(t, verdict.ShowCrisisBanner)
}

func TestBuildModelVerdictClampsEmotionScore(t *testing.T) {
	verdict := buildModelVerdict(map[string]any{
		"risk_level":    "low",
		"policy_action": "allow",
		"emotion_label": "calm",
		"emotion_score": 1.7,
		"rationale":     "Calm everyday message.",
	}, "minimax")

	require.NotNil(t, verdict.EmotionScore)
	assert.Equal(t, 1.0, *verdict.EmotionScore)
	assert.Equal(t, "calm", *verdict.EmotionLabel)
	assert.Equal(t, "Calm everyday message.", *verdict.Rationale)
}

func TestBuildModelVerdictNonNumericScore(t *testing.T) {
	verdict := buildModelVerdict(map[string]any{
		"risk_level":    "low",
		"policy_action": "allow",
		"emotion_score": "very high",
	}, "minimax")

	assert.Nil(t, verdict.EmotionScore)
}
