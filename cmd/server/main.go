package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"companionhk/internal/config"
	"companionhk/internal/handler"
	"companionhk/internal/memory"
	"companionhk/internal/middleware"
	"companionhk/internal/provider"
	"companionhk/internal/repository/postgres"
	"companionhk/internal/repository/rediscache"
	serviceChat "companionhk/internal/service/chat"
	serviceRecommend "companionhk/internal/service/recommend"
	serviceRuntime "companionhk/internal/service/runtime"
	serviceSafety "companionhk/internal/service/safety"
	serviceVoice "companionhk/internal/service/voice"
	serviceWeather "companionhk/internal/service/weather"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create Redis-backed short-term cache
	cache := rediscache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup, cache writes will be skipped", "error", err)
	} else {
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	chatRepo := postgres.NewChatRepository(repoConfig)
	auditRepo := postgres.NewAuditRepository(repoConfig)
	memoryRepo := postgres.NewMemoryRepository(repoConfig)
	recommendationRepo := postgres.NewRecommendationRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Setup providers and provider resolution
	resolver := provider.NewResolver(cfg, logger)
	logger.Info("providers resolved", "statuses", resolver.Statuses())

	// Safety monitor, conversation runtime, embeddings
	monitor := serviceSafety.NewMonitor(resolver, logger)
	conversationRuntime := serviceRuntime.New(cfg, logger)
	embedder := memory.NewEmbeddingProvider(cfg)

	// Services
	weatherService := serviceWeather.NewService(resolver, logger)
	chatService := serviceChat.NewService(
		cfg,
		logger,
		chatRepo,
		auditRepo,
		memoryRepo,
		recommendationRepo,
		cache,
		txManager,
		resolver,
		monitor,
		conversationRuntime,
		embedder,
	)
	recommendService := serviceRecommend.NewService(
		cfg,
		logger,
		recommendationRepo,
		chatRepo,
		auditRepo,
		txManager,
		resolver,
		weatherService,
	)
	voiceService := serviceVoice.NewService(cfg, logger, auditRepo, resolver)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService, logger)
	safetyHandler := handler.NewSafetyHandler(monitor, logger)
	recommendationHandler := handler.NewRecommendationHandler(recommendService, logger)
	voiceHandler := handler.NewVoiceHandler(voiceService, logger)
	healthHandler := handler.NewHealthHandler(cfg.AppName, pool, cache, resolver, logger)

	logger.Info("services initialized",
		"runtime", conversationRuntime.Name(),
		"safety_monitor_enabled", cfg.SafetyMonitorEnabled,
	)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health checks
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/dependencies", healthHandler.Dependencies)
	mux.HandleFunc("GET /ready", healthHandler.Ready)

	// Chat routes
	mux.HandleFunc("POST /api/chat/generate", chatHandler.Generate)
	mux.HandleFunc("GET /api/chat/history", chatHandler.History)
	mux.HandleFunc("POST /api/chat/clear", chatHandler.Clear)

	// Safety route
	mux.HandleFunc("POST /api/safety/evaluate", safetyHandler.Evaluate)

	// Recommendation routes
	mux.HandleFunc("POST /api/recommendations/generate", recommendationHandler.Generate)
	mux.HandleFunc("GET /api/recommendations/history", recommendationHandler.History)

	// Voice routes
	mux.HandleFunc("POST /api/voice/tts", voiceHandler.Synthesize)
	mux.HandleFunc("POST /api/voice/stt", voiceHandler.Transcribe)

	// Build middleware chain
	var rootHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Logging → Routes
	rootHandler = middleware.RequestLogger(logger)(rootHandler)
	rootHandler = middleware.Recovery(logger)(rootHandler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	rootHandler = corsHandler.Handler(rootHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthHandler.SetReady(true)

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
