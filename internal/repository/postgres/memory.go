package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
)

// PostgresMemoryRepository implements the MemoryRepository interface using PostgreSQL
type PostgresMemoryRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewMemoryRepository creates a new PostgresMemoryRepository
func NewMemoryRepository(config *RepositoryConfig) repositories.MemoryRepository {
	return &PostgresMemoryRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateEntry persists one long-term memory entry
func (r *PostgresMemoryRepository) CreateEntry(ctx context.Context, entry *models.MemoryEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			user_id, role, thread_id, entry_type, content, write_reason,
			source_provider, created_by_request_id, metadata, is_sensitive, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`, r.tables.MemoryEntries)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		entry.UserID,
		entry.Role,
		entry.ThreadID,
		entry.EntryType,
		entry.Content,
		entry.WriteReason,
		entry.SourceProvider,
		entry.CreatedByRequestID,
		entry.Metadata,
		entry.IsSensitive,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create memory entry: %w", err)
	}

	return nil
}

// CreateEmbedding persists the vector for a memory entry
func (r *PostgresMemoryRepository) CreateEmbedding(ctx context.Context, embedding *models.MemoryEmbedding) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			memory_entry_id, user_id, role, embedding_model,
			embedding_dimensions, embedding, distance_metric, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, r.tables.MemoryEmbeddings)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		embedding.MemoryEntryID,
		embedding.UserID,
		embedding.Role,
		embedding.EmbeddingModel,
		embedding.EmbeddingDimensions,
		embedding.Embedding,
		embedding.DistanceMetric,
	).Scan(&embedding.ID, &embedding.CreatedAt)
	if err != nil {
		return fmt.Errorf("create memory embedding: %w", err)
	}

	return nil
}

// DeleteByThread removes all memory entries and embeddings for the thread
func (r *PostgresMemoryRepository) DeleteByThread(ctx context.Context, userID string, role models.Role, threadID string) (int64, error) {
	executor := GetExecutor(ctx, r.pool)

	embeddingQuery := fmt.Sprintf(`
		DELETE FROM %s WHERE memory_entry_id IN (
			SELECT id FROM %s WHERE user_id = $1 AND role = $2 AND thread_id = $3
		)
	`, r.tables.MemoryEmbeddings, r.tables.MemoryEntries)
	if _, err := executor.Exec(ctx, embeddingQuery, userID, role, threadID); err != nil {
		return 0, fmt.Errorf("delete memory embeddings: %w", err)
	}

	entryQuery := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = $1 AND role = $2 AND thread_id = $3
	`, r.tables.MemoryEntries)
	tag, err := executor.Exec(ctx, entryQuery, userID, role, threadID)
	if err != nil {
		return 0, fmt.Errorf("delete memory entries: %w", err)
	}

	return tag.RowsAffected(), nil
}
