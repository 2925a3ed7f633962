package repositories

import (
	"context"

	"companionhk/internal/domain/models"
)

// TurnWithSafety pairs a persisted chat message with its safety event.
// Safety may be nil when no verdict row exists for the message.
type TurnWithSafety struct {
	Message models.ChatMessage
	Safety  *models.SafetyEvent
}

// ChatRepository persists threads, chat messages, and safety events.
type ChatRepository interface {
	// EnsureUser creates the user row if it does not exist yet.
	EnsureUser(ctx context.Context, userID string) error

	// GetOrCreateThread resolves the thread row for (user, role, thread_id),
	// creating it on first use.
	GetOrCreateThread(ctx context.Context, userID string, role models.Role, threadID string) (*models.Thread, error)

	// GetCurrentThread returns the most recently created thread for
	// (user, role), or nil when the user has no thread yet.
	GetCurrentThread(ctx context.Context, userID string, role models.Role) (*models.Thread, error)

	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	CreateSafetyEvent(ctx context.Context, event *models.SafetyEvent) error

	// ListRecentTurns returns up to limit most recent turns for the thread,
	// newest first, each paired with its safety event when one exists.
	ListRecentTurns(ctx context.Context, userID string, role models.Role, threadID string, limit int) ([]TurnWithSafety, error)

	// ListThreadRequestIDs returns the request IDs of all messages in the thread.
	ListThreadRequestIDs(ctx context.Context, userID string, role models.Role, threadID string) ([]string, error)

	// DeleteThreadMessages removes all messages (and their safety events) for
	// the thread and returns the number of messages deleted.
	DeleteThreadMessages(ctx context.Context, userID string, role models.Role, threadID string) (int64, error)
}
