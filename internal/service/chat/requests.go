package chat

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"companionhk/internal/domain/models"
)

// AttachmentRequest is optional uploaded-content metadata for a turn. Only
// the metadata is persisted; attachment bytes never reach storage.
type AttachmentRequest struct {
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	SizeB    int    `json:"size_bytes"`
}

// GenerateRequest is one inbound chat turn. ThreadID is optional; when empty
// the turn targets the user's current thread.
type GenerateRequest struct {
	UserID     string             `json:"user_id"`
	Role       string             `json:"role"`
	ThreadID   string             `json:"thread_id,omitempty"`
	Message    string             `json:"message"`
	Attachment *AttachmentRequest `json:"attachment,omitempty"`
}

func (r GenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
		validation.Field(&r.ThreadID, validation.Length(1, 256)),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 8000)),
	)
}

// HistoryRequest reads recent turns for an explicit thread, or the user's
// current thread when ThreadID is empty.
type HistoryRequest struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	ThreadID string `json:"thread_id,omitempty"`
	Limit    int    `json:"limit"`
}

func (r HistoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
		validation.Field(&r.ThreadID, validation.Length(1, 256)),
	)
}

// ClearRequest wipes an explicit thread, or the user's current thread for the
// role when ThreadID is empty.
type ClearRequest struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	ThreadID string `json:"thread_id,omitempty"`
}

func (r ClearRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
		validation.Field(&r.ThreadID, validation.Length(1, 256)),
	)
}

func validateRole(value interface{}) error {
	role, _ := value.(string)
	if !models.KnownRole(role) {
		return validation.NewError("validation_role", "must be one of: companion, local_guide, study_guide")
	}
	return nil
}

// GenerateResponse is the API shape of one completed turn.
type GenerateResponse struct {
	RequestID      string               `json:"request_id"`
	UserID         string               `json:"user_id"`
	Role           models.Role          `json:"role"`
	ThreadID       string               `json:"thread_id"`
	Reply          string               `json:"reply"`
	Provider       string               `json:"provider"`
	Runtime        string               `json:"runtime"`
	Status         string               `json:"status"`
	FallbackReason string               `json:"fallback_reason"`
	Safety         models.SafetyVerdict `json:"safety"`
	CreatedAt      time.Time            `json:"created_at"`
}

// HistoryTurnResponse is one persisted turn in chronological history output.
type HistoryTurnResponse struct {
	RequestID      string               `json:"request_id"`
	UserMessage    string               `json:"user_message"`
	AssistantReply string               `json:"assistant_reply"`
	Provider       string               `json:"provider"`
	Runtime        string               `json:"runtime"`
	Safety         models.SafetyVerdict `json:"safety"`
	CreatedAt      time.Time            `json:"created_at"`
}

// HistoryResponse lists recent turns oldest first.
type HistoryResponse struct {
	UserID   string                `json:"user_id"`
	Role     models.Role           `json:"role"`
	ThreadID string                `json:"thread_id"`
	Turns    []HistoryTurnResponse `json:"turns"`
}

// ClearResponse reports what a history clear removed and the fresh thread.
type ClearResponse struct {
	UserID                 string      `json:"user_id"`
	Role                   models.Role `json:"role"`
	ClearedThreadID        string      `json:"cleared_thread_id"`
	NewThreadID            string      `json:"new_thread_id"`
	DeletedMessages        int64       `json:"deleted_messages"`
	DeletedMemoryEntries   int64       `json:"deleted_memory_entries"`
	DeletedRecommendations int64       `json:"deleted_recommendations"`
}
