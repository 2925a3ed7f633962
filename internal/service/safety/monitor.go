package safety

import (
	"context"
	"fmt"
	"log/slog"

	"companionhk/internal/domain/models"
	"companionhk/internal/provider"
)

const classifierPromptTemplate = "You are a safety and emotion classifier for a supportive chat app. " +
	"Return only strict JSON with keys: risk_level, emotion_label, emotion_score, policy_action, rationale.\n" +
	"risk_level must be one of: low, medium, high.\n" +
	"policy_action must be one of: allow, supportive_refusal, escalate_banner.\n" +
	"emotion_score must be 0..1.\n" +
	"Classify this user message:\nmessage: %s"

// Monitor evaluates every inbound message before reply generation. It never
// returns an error: when the model-backed path is unavailable or produces
// unusable output, the rule engine stands in and the verdict is marked
// degraded.
type Monitor struct {
	resolver *provider.Resolver
	logger   *slog.Logger
}

func NewMonitor(resolver *provider.Resolver, logger *slog.Logger) *Monitor {
	return &Monitor{
		resolver: resolver,
		logger:   logger,
	}
}

// Evaluate classifies one user message.
func (m *Monitor) Evaluate(ctx context.Context, message string) models.SafetyVerdict {
	classifier, fallbackReason := m.resolver.ResolveSafetyClassifier()
	if classifier == nil {
		return m.rulesVerdict(message, fallbackReason)
	}

	prompt := fmt.Sprintf(classifierPromptTemplate, message)
	raw, err := classifier.Classify(ctx, prompt)
	if err != nil {
		m.logger.Warn("safety classifier call failed, using rule engine",
			"provider", classifier.Name(),
			"error", err)
		return m.rulesVerdict(message, "minimax_unavailable_or_invalid_response")
	}

	parsed, err := extractJSONObject(raw)
	if err != nil {
		m.logger.Warn("safety classifier returned unparseable output, using rule engine",
			"provider", classifier.Name())
		return m.rulesVerdict(message, "minimax_unavailable_or_invalid_response")
	}

	return buildModelVerdict(parsed, classifier.Name())
}

func (m *Monitor) rulesVerdict(message string, fallbackReason string) models.SafetyVerdict {
	verdict := evaluateRules(message)
	verdict.Degraded = true
	verdict.FallbackReason = &fallbackReason
	return verdict
}

// buildModelVerdict coerces the parsed classifier output into a verdict,
// enforcing the field domains and the high-risk policy invariant.
func buildModelVerdict(parsed map[string]any, providerName string) models.SafetyVerdict {
	riskLevel := models.RiskLevel(stringField(parsed, "risk_level"))
	switch riskLevel {
	case models.RiskLow, models.RiskMedium, models.RiskHigh:
	default:
		riskLevel = models.RiskLow
	}

	policyAction := models.PolicyAction(stringField(parsed, "policy_action"))
	switch policyAction {
	case models.PolicyAllow, models.PolicySupportiveRefusal, models.PolicyEscalateBanner:
	default:
		policyAction = models.PolicyAllow
	}

	// A high-risk classification can never pass through as allow.
	if riskLevel == models.RiskHigh && policyAction == models.PolicyAllow {
		policyAction = models.PolicySupportiveRefusal
	}

	verdict := models.SafetyVerdict{
		RiskLevel:       riskLevel,
		PolicyAction:    policyAction,
		MonitorProvider: providerName,
	}
	verdict.ShowCrisisBanner = riskLevel == models.RiskHigh ||
		policyAction == models.PolicySupportiveRefusal ||
		policyAction == models.PolicyEscalateBanner

	if label := stringField(parsed, "emotion_label"); label != "" {
		verdict.EmotionLabel = &label
	}
	if score, ok := parsed["emotion_score"].(float64); ok {
		score = min(max(score, 0), 1)
		verdict.EmotionScore = &score
	}
	if rationale := stringField(parsed, "rationale"); rationale != "" {
		verdict.Rationale = &rationale
	}

	return verdict
}

func stringField(parsed map[string]any, key string) string {
	value, _ := parsed[key].(string)
	return value
}
