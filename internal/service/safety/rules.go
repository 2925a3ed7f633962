package safety

import (
	"strings"

	"companionhk/internal/domain/models"
)

// Lexicons for the deterministic rule engine. Matching is case-insensitive
// substring containment, which also covers the Chinese phrases.
var (
	highRiskPhrases = []string{
		"suicide", "kill myself", "end my life", "hurt myself", "self harm",
		"want to die", "die tonight", "jump off", "overdose", "cut myself",
		"想死", "自殺", "傷害自己",
	}

	mediumRiskPhrases = []string{
		"hopeless", "worthless", "can't go on", "overwhelmed", "panic",
		"depressed", "lonely", "anxious", "sad", "burned out",
		"好難受", "好絕望", "好焦慮",
	}

	harmIntentPhrases = []string{
		"how to", "best way", "method", "steps", "plan", "teach me",
		"點樣", "方法",
	}
)

type emotionPattern struct {
	phrase string
	label  string
	score  float64
}

// emotionPatterns are checked in order; the first match wins.
var emotionPatterns = []emotionPattern{
	{"anxious", "anxious", 0.74},
	{"panic", "anxious", 0.86},
	{"worried", "anxious", 0.65},
	{"sad", "sad", 0.68},
	{"depressed", "sad", 0.84},
	{"hopeless", "sad", 0.86},
	{"angry", "angry", 0.70},
	{"frustrated", "angry", 0.67},
	{"lonely", "lonely", 0.73},
	{"overwhelmed", "overwhelmed", 0.72},
	{"burned out", "overwhelmed", 0.76},
	{"stressed", "overwhelmed", 0.66},
	{"excited", "positive", 0.61},
	{"happy", "positive", 0.66},
	{"calm", "calm", 0.61},
	{"開心", "positive", 0.70},
	{"焦慮", "anxious", 0.78},
	{"難過", "sad", 0.74},
	{"孤單", "lonely", 0.72},
}

const (
	highRiskRationale   = "Detected self-harm indicators or direct harmful intent."
	mediumRiskRationale = "Detected emotional distress without direct harmful intent."
	lowRiskRationale    = "No elevated harm signal detected."
)

func containsAny(lowered string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// detectEmotion returns the first matching emotion label and score, or
// neutral when nothing matches.
func detectEmotion(lowered string) (string, float64) {
	for _, pattern := range emotionPatterns {
		if strings.Contains(lowered, pattern.phrase) {
			return pattern.label, pattern.score
		}
	}
	return "neutral", 0.42
}

// evaluateRules runs the deterministic classifier. It always produces a
// complete verdict; the caller fills in provider, degraded, and fallback
// fields.
func evaluateRules(message string) models.SafetyVerdict {
	lowered := strings.ToLower(message)

	emotionLabel, emotionScore := detectEmotion(lowered)

	highRisk := containsAny(lowered, highRiskPhrases)
	harmIntent := containsAny(lowered, harmIntentPhrases)
	mediumRisk := containsAny(lowered, mediumRiskPhrases)

	verdict := models.SafetyVerdict{
		MonitorProvider: "rules",
	}

	switch {
	case highRisk || (harmIntent && mediumRisk):
		if emotionScore < 0.85 {
			emotionScore = 0.85
		}
		rationale := highRiskRationale
		verdict.RiskLevel = models.RiskHigh
		verdict.ShowCrisisBanner = true
		verdict.PolicyAction = models.PolicySupportiveRefusal
		verdict.Rationale = &rationale
	case mediumRisk:
		if emotionScore < 0.62 {
			emotionScore = 0.62
		}
		rationale := mediumRiskRationale
		verdict.RiskLevel = models.RiskMedium
		verdict.PolicyAction = models.PolicyAllow
		verdict.Rationale = &rationale
	default:
		rationale := lowRiskRationale
		verdict.RiskLevel = models.RiskLow
		verdict.PolicyAction = models.PolicyAllow
		verdict.Rationale = &rationale
	}

	verdict.EmotionLabel = &emotionLabel
	verdict.EmotionScore = &emotionScore
	return verdict
}
