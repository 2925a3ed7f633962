package models

// RiskLevel classifies how concerning a single message is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PolicyAction is what the orchestrator must do with a classified message.
type PolicyAction string

const (
	PolicyAllow             PolicyAction = "allow"
	PolicySupportiveRefusal PolicyAction = "supportive_refusal"
	PolicyEscalateBanner    PolicyAction = "escalate_banner"
)

// SafetyVerdict is the output shape shared by both classifier paths of the
// safety monitor. Computed before reply generation and never changed after.
type SafetyVerdict struct {
	RiskLevel        RiskLevel    `json:"risk_level"`
	ShowCrisisBanner bool         `json:"show_crisis_banner"`
	EmotionLabel     *string      `json:"emotion_label,omitempty"`
	EmotionScore     *float64     `json:"emotion_score,omitempty"`
	PolicyAction     PolicyAction `json:"policy_action"`
	MonitorProvider  string       `json:"monitor_provider"`
	Degraded         bool         `json:"degraded"`
	FallbackReason   *string      `json:"fallback_reason,omitempty"`
	Rationale        *string      `json:"rationale,omitempty"`
}
