package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
)

// PostgresAuditRepository implements the AuditRepository interface using PostgreSQL
type PostgresAuditRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewAuditRepository creates a new PostgresAuditRepository
func NewAuditRepository(config *RepositoryConfig) repositories.AuditRepository {
	return &PostgresAuditRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateProviderEvent appends one provider-health audit record
func (r *PostgresAuditRepository) CreateProviderEvent(ctx context.Context, event *models.ProviderEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			user_id, request_id, role, scope, provider_name, runtime,
			status, fallback_reason, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`, r.tables.ProviderEvents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		event.UserID,
		event.RequestID,
		event.Role,
		event.Scope,
		event.ProviderName,
		event.Runtime,
		event.Status,
		event.FallbackReason,
		event.Metadata,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create provider event: %w", err)
	}

	return nil
}

// CreateAuditEvent appends one application audit record
func (r *PostgresAuditRepository) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			event_type, user_id, request_id, role, thread_id, message, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`, r.tables.AuditEvents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		event.EventType,
		event.UserID,
		event.RequestID,
		event.Role,
		event.ThreadID,
		event.Message,
		event.Metadata,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}

	return nil
}
