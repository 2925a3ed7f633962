package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Users                  string
	Threads                string
	ChatMessages           string
	SafetyEvents           string
	ProviderEvents         string
	AuditEvents            string
	MemoryEntries          string
	MemoryEmbeddings       string
	RecommendationRequests string
	RecommendationItems    string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Users:                  fmt.Sprintf("%susers", prefix),
		Threads:                fmt.Sprintf("%schat_threads", prefix),
		ChatMessages:           fmt.Sprintf("%schat_messages", prefix),
		SafetyEvents:           fmt.Sprintf("%ssafety_events", prefix),
		ProviderEvents:         fmt.Sprintf("%sprovider_events", prefix),
		AuditEvents:            fmt.Sprintf("%saudit_events", prefix),
		MemoryEntries:          fmt.Sprintf("%smemory_entries", prefix),
		MemoryEmbeddings:       fmt.Sprintf("%smemory_embeddings", prefix),
		RecommendationRequests: fmt.Sprintf("%srecommendation_requests", prefix),
		RecommendationItems:    fmt.Sprintf("%srecommendation_items", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Port 6543 (transaction pooler) does not support prepared statements, so
// QueryExecModeCacheDescribe is selected there: it uses the extended protocol
// (needed for JSONB encoding of map[string]interface{}) while caching statement
// descriptions rather than prepared statements. An explicit
// default_query_exec_mode in the connection string takes precedence.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for pooler compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
