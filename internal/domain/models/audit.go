package models

import "time"

// ProviderEventScope names the external capability an event belongs to.
type ProviderEventScope string

const (
	ScopeChat      ProviderEventScope = "chat"
	ScopeSafety    ProviderEventScope = "safety"
	ScopeVoice     ProviderEventScope = "voice"
	ScopeWeather   ProviderEventScope = "weather"
	ScopeMaps      ProviderEventScope = "maps"
	ScopeRetrieval ProviderEventScope = "retrieval"
)

// ProviderEventStatus records the outcome of one capability invocation.
type ProviderEventStatus string

const (
	ProviderStatusSuccess  ProviderEventStatus = "success"
	ProviderStatusDegraded ProviderEventStatus = "degraded"
	ProviderStatusFallback ProviderEventStatus = "fallback"
	ProviderStatusFailed   ProviderEventStatus = "failed"
)

// AuditEventType classifies application-level audit rows.
type AuditEventType string

const (
	AuditSafetyEvent           AuditEventType = "safety_event"
	AuditMemoryWrite           AuditEventType = "memory_write"
	AuditRecommendationRequest AuditEventType = "recommendation_request"
)

// ProviderEvent is an append-only audit record of one external-capability
// invocation outcome, linked to the originating request.
type ProviderEvent struct {
	ID             int64
	UserID         *string
	RequestID      string
	Role           *Role
	Scope          ProviderEventScope
	ProviderName   string
	Runtime        *string
	Status         ProviderEventStatus
	FallbackReason *string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// AuditEvent is an append-only application audit record.
type AuditEvent struct {
	ID        int64
	EventType AuditEventType
	UserID    string
	RequestID string
	Role      Role
	ThreadID  *string
	Message   *string
	Metadata  map[string]any
	CreatedAt time.Time
}
