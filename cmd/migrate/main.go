package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"companionhk/internal/config"
	"companionhk/internal/repository/postgres"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating them (fresh start)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: never drop tables in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	log.Printf("Migrating database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			user_id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	createThreads := `
		CREATE TABLE IF NOT EXISTS ` + tables.Threads + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES ` + tables.Users + `(user_id),
			role TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, role, thread_id)
		)
	`
	if _, err := pool.Exec(ctx, createThreads); err != nil {
		return err
	}

	createChatMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.ChatMessages + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			thread_pk BIGINT NOT NULL REFERENCES ` + tables.Threads + `(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			user_message TEXT NOT NULL,
			assistant_reply TEXT NOT NULL,
			runtime TEXT NOT NULL,
			provider TEXT NOT NULL,
			provider_fallback_reason TEXT NOT NULL DEFAULT 'not_applicable',
			context_snapshot JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createChatMessages); err != nil {
		return err
	}

	createSafetyEvents := `
		CREATE TABLE IF NOT EXISTS ` + tables.SafetyEvents + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			chat_message_id BIGINT NOT NULL REFERENCES ` + tables.ChatMessages + `(id) ON DELETE CASCADE,
			thread_pk BIGINT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			show_crisis_banner BOOLEAN NOT NULL DEFAULT FALSE,
			emotion_label TEXT,
			emotion_score DOUBLE PRECISION,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSafetyEvents); err != nil {
		return err
	}

	createProviderEvents := `
		CREATE TABLE IF NOT EXISTS ` + tables.ProviderEvents + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id TEXT,
			request_id TEXT NOT NULL,
			role TEXT,
			scope TEXT NOT NULL,
			provider_name TEXT NOT NULL,
			runtime TEXT,
			status TEXT NOT NULL,
			fallback_reason TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createProviderEvents); err != nil {
		return err
	}

	createAuditEvents := `
		CREATE TABLE IF NOT EXISTS ` + tables.AuditEvents + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			event_type TEXT NOT NULL,
			user_id TEXT NOT NULL,
			request_id TEXT NOT NULL,
			role TEXT NOT NULL,
			thread_id TEXT,
			message TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createAuditEvents); err != nil {
		return err
	}

	createMemoryEntries := `
		CREATE TABLE IF NOT EXISTS ` + tables.MemoryEntries + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			entry_type TEXT NOT NULL,
			content TEXT NOT NULL,
			write_reason TEXT NOT NULL,
			source_provider TEXT NOT NULL,
			created_by_request_id TEXT NOT NULL,
			metadata JSONB,
			is_sensitive BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMemoryEntries); err != nil {
		return err
	}

	createMemoryEmbeddings := `
		CREATE TABLE IF NOT EXISTS ` + tables.MemoryEmbeddings + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			memory_entry_id BIGINT NOT NULL REFERENCES ` + tables.MemoryEntries + `(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			embedding_model TEXT NOT NULL,
			embedding_dimensions INTEGER NOT NULL,
			embedding REAL[] NOT NULL,
			distance_metric TEXT NOT NULL DEFAULT 'cosine',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMemoryEmbeddings); err != nil {
		return err
	}

	createRecommendationRequests := `
		CREATE TABLE IF NOT EXISTS ` + tables.RecommendationRequests + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			request_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			query TEXT NOT NULL,
			max_results INTEGER NOT NULL,
			preference_tags TEXT[],
			travel_mode TEXT NOT NULL DEFAULT 'walking',
			user_location_geohash TEXT,
			user_location_region TEXT,
			weather_condition TEXT NOT NULL DEFAULT 'unknown',
			temperature_c DOUBLE PRECISION,
			degraded BOOLEAN NOT NULL DEFAULT FALSE,
			fallback_reason TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createRecommendationRequests); err != nil {
		return err
	}

	createRecommendationItems := `
		CREATE TABLE IF NOT EXISTS ` + tables.RecommendationItems + ` (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			request_pk BIGINT NOT NULL REFERENCES ` + tables.RecommendationRequests + `(id) ON DELETE CASCADE,
			place_id TEXT NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			rating DOUBLE PRECISION,
			user_ratings_total INTEGER,
			types TEXT[],
			place_latitude DOUBLE PRECISION NOT NULL,
			place_longitude DOUBLE PRECISION NOT NULL,
			photo_url TEXT,
			maps_uri TEXT,
			distance_text TEXT,
			duration_text TEXT,
			fit_score DOUBLE PRECISION NOT NULL,
			rationale TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createRecommendationItems); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `chat_messages_thread ON ` + tables.ChatMessages + `(user_id, role, thread_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `safety_events_message ON ` + tables.SafetyEvents + `(chat_message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `provider_events_request ON ` + tables.ProviderEvents + `(request_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `audit_events_user ON ` + tables.AuditEvents + `(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `memory_entries_thread ON ` + tables.MemoryEntries + `(user_id, role, thread_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `recommendation_requests_user ON ` + tables.RecommendationRequests + `(user_id, role, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `recommendation_items_request ON ` + tables.RecommendationItems + `(request_pk)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.RecommendationItems,
		tables.RecommendationRequests,
		tables.MemoryEmbeddings,
		tables.MemoryEntries,
		tables.AuditEvents,
		tables.ProviderEvents,
		tables.SafetyEvents,
		tables.ChatMessages,
		tables.Threads,
		tables.Users,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  dropped %s", table)
	}

	return nil
}
