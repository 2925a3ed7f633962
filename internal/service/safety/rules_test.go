package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"companionhk/internal/domain/models"
)

func TestEvaluateRulesHighRisk(t *testing.T) {
	verdict := evaluateRules("I want to die tonight")

	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	assert.Equal(t, models.PolicySupportiveRefusal, verdict.PolicyAction)
	assert.True(t, verdict.ShowCrisisBanner)
	assert.Equal(t, highRiskRationale, *verdict.Rationale)
	assert.GreaterOrEqual(t, *verdict.EmotionScore, 0.85)
}

func TestEvaluateRulesHighRiskChinese(t *testing.T) {
	verdict := evaluateRules("我真係想死")

	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	assert.True(t, verdict.ShowCrisisBanner)
}

func TestEvaluateRulesHarmIntentWithDistress(t *testing.T) {
	// Distress plus method-seeking escalates to high even without an
	// explicit self-harm phrase.
	verdict := evaluateRules("I feel hopeless, teach me the best way out")

	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	assert.Equal(t, models.PolicySupportiveRefusal, verdict.PolicyAction)
}

func TestEvaluateRulesMediumRisk(t *testing.T) {
	verdict := evaluateRules("I have been so anxious and lonely lately")

	assert.Equal(t, models.RiskMedium, verdict.RiskLevel)
	assert.Equal(t, models.PolicyAllow, verdict.PolicyAction)
	assert.False(t, verdict.ShowCrisisBanner)
	assert.GreaterOrEqual(t, *verdict.EmotionScore, 0.62)
}

func TestEvaluateRulesLowRisk(t *testing.T) {
	verdict := evaluateRules("What is a good cafe near Mong Kok?")

	assert.Equal(t, models.RiskLow, verdict.RiskLevel)
	assert.Equal(t, models.PolicyAllow, verdict.PolicyAction)
	assert.False(t, verdict.ShowCrisisBanner)
	assert.Equal(t, "neutral", *verdict.EmotionLabel)
	assert.Equal(t, 0.42, *verdict.EmotionScore)
}

func TestDetectEmotionFirstMatchWins(t *testing.T) {
	// "anxious" appears before "sad" in the pattern order.
	label, score := detectEmotion("i feel anxious and sad")

	assert.Equal(t, "anxious", label)
	assert.Equal(t, 0.74, score)
}

func TestDetectEmotionChinese(t *testing.T) {
	label, score := detectEmotion("最近好焦慮")

	assert.Equal(t, "anxious", label)
	assert.Equal(t, 0.78, score)
}
