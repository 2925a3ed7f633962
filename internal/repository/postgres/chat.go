package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
)

// PostgresChatRepository implements the ChatRepository interface using PostgreSQL
type PostgresChatRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewChatRepository creates a new PostgresChatRepository
func NewChatRepository(config *RepositoryConfig) repositories.ChatRepository {
	return &PostgresChatRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// EnsureUser creates the user row if it does not exist yet
func (r *PostgresChatRepository) EnsureUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// GetOrCreateThread resolves the thread row for (user, role, thread_id)
func (r *PostgresChatRepository) GetOrCreateThread(ctx context.Context, userID string, role models.Role, threadID string) (*models.Thread, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, role, thread_id, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, role, thread_id)
		DO UPDATE SET thread_id = EXCLUDED.thread_id
		RETURNING id, user_id, role, thread_id, created_at
	`, r.tables.Threads)

	var thread models.Thread
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, role, threadID).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Role,
		&thread.ThreadID,
		&thread.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create thread: %w", err)
	}

	return &thread, nil
}

// GetCurrentThread returns the newest thread for (user, role), or nil
func (r *PostgresChatRepository) GetCurrentThread(ctx context.Context, userID string, role models.Role) (*models.Thread, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, role, thread_id, created_at
		FROM %s
		WHERE user_id = $1 AND role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, r.tables.Threads)

	var thread models.Thread
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, role).Scan(
		&thread.ID,
		&thread.UserID,
		&thread.Role,
		&thread.ThreadID,
		&thread.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get current thread: %w", err)
	}

	return &thread, nil
}

// CreateMessage persists one chat turn
func (r *PostgresChatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			thread_pk, user_id, role, thread_id, request_id,
			user_message, assistant_reply, runtime, provider,
			provider_fallback_reason, context_snapshot, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at
	`, r.tables.ChatMessages)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		message.ThreadPK,
		message.UserID,
		message.Role,
		message.ThreadID,
		message.RequestID,
		message.UserMessage,
		message.AssistantReply,
		message.Runtime,
		message.Provider,
		message.ProviderFallbackReason,
		message.ContextSnapshot,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}

	return nil
}

// CreateSafetyEvent persists the safety verdict for one chat message
func (r *PostgresChatRepository) CreateSafetyEvent(ctx context.Context, event *models.SafetyEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			chat_message_id, thread_pk, user_id, role, thread_id, request_id,
			risk_level, show_crisis_banner, emotion_label, emotion_score, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`, r.tables.SafetyEvents)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		event.ChatMessageID,
		event.ThreadPK,
		event.UserID,
		event.Role,
		event.ThreadID,
		event.RequestID,
		event.RiskLevel,
		event.ShowCrisisBanner,
		event.EmotionLabel,
		event.EmotionScore,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create safety event: %w", err)
	}

	return nil
}

// ListRecentTurns returns up to limit most recent turns, newest first
func (r *PostgresChatRepository) ListRecentTurns(ctx context.Context, userID string, role models.Role, threadID string, limit int) ([]repositories.TurnWithSafety, error) {
	query := fmt.Sprintf(`
		SELECT
			m.id, m.thread_pk, m.user_id, m.role, m.thread_id, m.request_id,
			m.user_message, m.assistant_reply, m.runtime, m.provider,
			m.provider_fallback_reason, m.created_at,
			s.id, s.risk_level, s.show_crisis_banner, s.emotion_label, s.emotion_score
		FROM %s m
		LEFT JOIN %s s ON s.chat_message_id = m.id
		WHERE m.user_id = $1 AND m.role = $2 AND m.thread_id = $3
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $4
	`, r.tables.ChatMessages, r.tables.SafetyEvents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, role, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer rows.Close()

	var turns []repositories.TurnWithSafety
	for rows.Next() {
		var turn repositories.TurnWithSafety
		var safetyID *int64
		var riskLevel *models.RiskLevel
		var showBanner *bool
		var emotionLabel *string
		var emotionScore *float64

		err := rows.Scan(
			&turn.Message.ID,
			&turn.Message.ThreadPK,
			&turn.Message.UserID,
			&turn.Message.Role,
			&turn.Message.ThreadID,
			&turn.Message.RequestID,
			&turn.Message.UserMessage,
			&turn.Message.AssistantReply,
			&turn.Message.Runtime,
			&turn.Message.Provider,
			&turn.Message.ProviderFallbackReason,
			&turn.Message.CreatedAt,
			&safetyID,
			&riskLevel,
			&showBanner,
			&emotionLabel,
			&emotionScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}

		if safetyID != nil {
			turn.Safety = &models.SafetyEvent{
				ID:               *safetyID,
				ChatMessageID:    turn.Message.ID,
				RiskLevel:        *riskLevel,
				ShowCrisisBanner: *showBanner,
				EmotionLabel:     emotionLabel,
				EmotionScore:     emotionScore,
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// ListThreadRequestIDs returns all request IDs for the thread
func (r *PostgresChatRepository) ListThreadRequestIDs(ctx context.Context, userID string, role models.Role, threadID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT request_id FROM %s
		WHERE user_id = $1 AND role = $2 AND thread_id = $3
		ORDER BY created_at ASC
	`, r.tables.ChatMessages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, role, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread request ids: %w", err)
	}
	defer rows.Close()

	var requestIDs []string
	for rows.Next() {
		var requestID string
		if err := rows.Scan(&requestID); err != nil {
			return nil, fmt.Errorf("scan request id: %w", err)
		}
		requestIDs = append(requestIDs, requestID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request ids: %w", err)
	}

	return requestIDs, nil
}

// DeleteThreadMessages removes all messages and safety events for the thread
func (r *PostgresChatRepository) DeleteThreadMessages(ctx context.Context, userID string, role models.Role, threadID string) (int64, error) {
	executor := GetExecutor(ctx, r.pool)

	safetyQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND role = $2 AND thread_id = $3
	`, r.tables.SafetyEvents)
	if _, err := executor.Exec(ctx, safetyQuery, userID, role, threadID); err != nil {
		return 0, fmt.Errorf("delete safety events: %w", err)
	}

	messageQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND role = $2 AND thread_id = $3
	`, r.tables.ChatMessages)
	tag, err := executor.Exec(ctx, messageQuery, userID, role, threadID)
	if err != nil {
		return 0, fmt.Errorf("delete chat messages: %w", err)
	}

	return tag.RowsAffected(), nil
}
