package provider

import (
	"context"

	"companionhk/internal/domain/models"
)

// Place is one candidate location from a maps provider or the local catalog.
type Place struct {
	PlaceID          string
	Name             string
	Address          string
	Rating           *float64
	UserRatingsTotal *int
	Types            []string
	Latitude         float64
	Longitude        float64
	PhotoURL         *string
	MapsURI          *string
}

// Route is a point-to-point travel estimate.
type Route struct {
	DistanceMeters  int
	DurationSeconds int
	Polyline        *string
}

// Weather is a current-conditions snapshot. When the live provider is
// unavailable Condition is "unknown" and Degraded is set.
type Weather struct {
	Condition      string   `json:"condition"`
	TemperatureC   *float64 `json:"temperature_c"`
	Source         string   `json:"source"`
	Degraded       bool     `json:"degraded"`
	FallbackReason *string  `json:"fallback_reason,omitempty"`
}

// RetrievalEntry is one web search result used to enrich chat context.
type RetrievalEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// HistoryTurn is one prior exchange replayed into a chat completion.
type HistoryTurn struct {
	UserMessage    string
	AssistantReply string
}

// Attachment is optional uploaded-content metadata carried with a turn.
type Attachment struct {
	Kind     string
	Filename string
	MimeType string
	SizeB    int
}

// ChatContext carries everything a chat provider may use to shape a reply.
// Safety is nil until the monitor has run; Memory holds the context snapshot
// persisted alongside the turn.
type ChatContext struct {
	UserID       string
	ThreadID     string
	Role         models.Role
	SystemPrompt string
	History      []HistoryTurn
	Safety       *models.SafetyVerdict
	Memory       map[string]any
	Attachment   *Attachment
}

// ChatProvider produces one assistant reply per user message.
type ChatProvider interface {
	Name() string
	GenerateReply(ctx context.Context, message string, chatCtx *ChatContext) (string, error)
}

// SafetyClassifier labels one user message with a structured safety verdict.
// Implementations return the raw model output; the monitor owns parsing.
type SafetyClassifier interface {
	Name() string
	Classify(ctx context.Context, prompt string) (string, error)
}

// MapsProvider searches places and estimates routes.
type MapsProvider interface {
	Name() string
	SearchPlaces(ctx context.Context, query string, lat, lng float64, radiusM int, maxResults int) ([]Place, error)
	GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*Route, error)
}

// WeatherProvider reports current conditions at a coordinate. Timezone is an
// IANA name or "auto" to let the provider infer it from the coordinate.
type WeatherProvider interface {
	Name() string
	GetCurrentWeather(ctx context.Context, lat, lng float64, timezone string) (*Weather, error)
}

// RetrievalProvider performs web search for context enrichment.
type RetrievalProvider interface {
	Name() string
	Retrieve(ctx context.Context, query string, maxResults int) ([]RetrievalEntry, error)
}

// VoiceProvider synthesizes and transcribes speech.
type VoiceProvider interface {
	Name() string
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
