package models

import "time"

// Role is one of the fixed conversational personas.
type Role string

const (
	RoleCompanion  Role = "companion"
	RoleLocalGuide Role = "local_guide"
	RoleStudyGuide Role = "study_guide"
)

// KnownRole reports whether the given string names a supported persona.
func KnownRole(role string) bool {
	switch Role(role) {
	case RoleCompanion, RoleLocalGuide, RoleStudyGuide:
		return true
	}
	return false
}

// Thread groups chat turns for one (user, role) conversation scope.
type Thread struct {
	ID        int64
	UserID    string
	Role      Role
	ThreadID  string
	CreatedAt time.Time
}

// ChatMessage is one persisted user-message/assistant-reply exchange.
// Immutable once written; removed only by an explicit history clear.
type ChatMessage struct {
	ID                     int64
	ThreadPK               int64
	UserID                 string
	Role                   Role
	ThreadID               string
	RequestID              string
	UserMessage            string
	AssistantReply         string
	Runtime                string
	Provider               string
	ProviderFallbackReason string
	ContextSnapshot        map[string]any
	CreatedAt              time.Time
}

// SafetyEvent is the persisted safety verdict for one chat message.
type SafetyEvent struct {
	ID               int64
	ChatMessageID    int64
	ThreadPK         int64
	UserID           string
	Role             Role
	ThreadID         string
	RequestID        string
	RiskLevel        RiskLevel
	ShowCrisisBanner bool
	EmotionLabel     *string
	EmotionScore     *float64
	CreatedAt        time.Time
}
