package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppName     string
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Chat provider selection
	ChatProvider string // "minimax" or "mock"

	// Conversation runtime
	ThreadedRuntimeEnabled bool
	RuntimeHistoryMaxTurns int

	// MiniMax (chat + safety classifier + embeddings)
	MiniMaxEnabled     bool
	MiniMaxAPIKey      string
	MiniMaxBaseURL     string
	MiniMaxChatModel   string
	MiniMaxSafetyModel string

	// Safety monitor
	SafetyMonitorEnabled bool

	// Voice
	VoiceAPIEnabled    bool
	ElevenLabsEnabled  bool
	ElevenLabsAPIKey   string
	CantoneseAIEnabled bool
	CantoneseAIAPIKey  string

	// Retrieval (Exa)
	ExaEnabled bool
	ExaAPIKey  string

	// Weather (Open-Meteo, no key required)
	WeatherEnabled bool

	// Maps (Google Places / Routes)
	GoogleMapsEnabled  bool
	GoogleMapsAPIKey   string
	MapsDefaultRadiusM int
	MapsLanguage       string

	// Memory
	MemoryShortTermMaxTurns   int
	MemoryShortTermTTL        time.Duration
	MemoryLongTermStrategy    string
	MemoryRetrievalTopK       int
	MemoryEmbeddingModel      string
	MemoryEmbeddingDimensions int

	// Privacy
	StorePreciseUserLocation bool
	LocationGeohashPrecision int

	// Outbound call timeout for chat/safety/maps/weather/retrieval providers
	ProviderTimeout time.Duration

	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		AppName:     "companionhk-api",
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ChatProvider: getEnv("CHAT_PROVIDER", "mock"),

		ThreadedRuntimeEnabled: getEnvBool("FEATURE_THREADED_RUNTIME_ENABLED", false),
		RuntimeHistoryMaxTurns: getEnvInt("RUNTIME_HISTORY_MAX_TURNS", 20),

		MiniMaxEnabled:     getEnvBool("FEATURE_MINIMAX_ENABLED", false),
		MiniMaxAPIKey:      getEnv("MINIMAX_API_KEY", ""),
		MiniMaxBaseURL:     getEnv("MINIMAX_BASE_URL", "https://api.minimax.io/v1"),
		MiniMaxChatModel:   getEnv("MINIMAX_CHAT_MODEL", "MiniMax-Text-01"),
		MiniMaxSafetyModel: getEnv("MINIMAX_SAFETY_MODEL", "MiniMax-Text-01"),

		SafetyMonitorEnabled: getEnvBool("FEATURE_SAFETY_MONITOR_ENABLED", true),

		VoiceAPIEnabled:    getEnvBool("FEATURE_VOICE_API_ENABLED", false),
		ElevenLabsEnabled:  getEnvBool("FEATURE_ELEVENLABS_ENABLED", false),
		ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
		CantoneseAIEnabled: getEnvBool("FEATURE_CANTONESEAI_ENABLED", false),
		CantoneseAIAPIKey:  getEnv("CANTONESEAI_API_KEY", ""),

		ExaEnabled: getEnvBool("FEATURE_EXA_ENABLED", false),
		ExaAPIKey:  getEnv("EXA_API_KEY", ""),

		WeatherEnabled: getEnvBool("FEATURE_WEATHER_ENABLED", false),

		GoogleMapsEnabled:  getEnvBool("FEATURE_GOOGLE_MAPS_ENABLED", false),
		GoogleMapsAPIKey:   getEnv("GOOGLE_MAPS_API_KEY", ""),
		MapsDefaultRadiusM: getEnvInt("GOOGLE_MAPS_DEFAULT_RADIUS_METERS", 2000),
		MapsLanguage:       getEnv("GOOGLE_MAPS_LANGUAGE", "en"),

		MemoryShortTermMaxTurns:   getEnvInt("MEMORY_SHORT_TERM_MAX_TURNS", 10),
		MemoryShortTermTTL:        time.Duration(getEnvInt("MEMORY_SHORT_TERM_TTL_SECONDS", 86400)) * time.Second,
		MemoryLongTermStrategy:    getEnv("MEMORY_LONG_TERM_STRATEGY", "hybrid_profile_retrieval"),
		MemoryRetrievalTopK:       getEnvInt("MEMORY_RETRIEVAL_TOP_K", 5),
		MemoryEmbeddingModel:      getEnv("MEMORY_EMBEDDING_MODEL", "embo-01"),
		MemoryEmbeddingDimensions: getEnvInt("MEMORY_EMBEDDING_DIMENSIONS", 1536),

		StorePreciseUserLocation: getEnvBool("PRIVACY_STORE_PRECISE_USER_LOCATION", false),
		LocationGeohashPrecision: getEnvInt("RECOMMENDATION_USER_LOCATION_GEOHASH_PRECISION", 6),

		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,

		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
