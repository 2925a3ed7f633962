package repositories

import (
	"context"

	"companionhk/internal/domain/models"
)

// MemoryRepository persists long-term memory entries and their embeddings.
type MemoryRepository interface {
	CreateEntry(ctx context.Context, entry *models.MemoryEntry) error
	CreateEmbedding(ctx context.Context, embedding *models.MemoryEmbedding) error

	// DeleteByThread removes all entries (and embeddings) for the thread and
	// returns the number of entries deleted.
	DeleteByThread(ctx context.Context, userID string, role models.Role, threadID string) (int64, error)
}
