package recommend

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"companionhk/internal/domain/models"
)

// LocationRequest is an optional user coordinate. Only a privacy-reduced
// token of it is persisted unless precise storage is enabled.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region,omitempty"`
}

// GenerateRequest asks for scored place suggestions.
type GenerateRequest struct {
	UserID         string           `json:"user_id"`
	Role           string           `json:"role"`
	Query          string           `json:"query"`
	MaxResults     int              `json:"max_results"`
	PreferenceTags []string         `json:"preference_tags,omitempty"`
	TravelMode     string           `json:"travel_mode,omitempty"`
	Location       *LocationRequest `json:"location,omitempty"`
}

func (r GenerateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
		validation.Field(&r.Query, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.TravelMode, validation.In("", "walking", "transit", "driving")),
	)
}

// HistoryRequest reads persisted recommendation batches. With RequestIDs set
// only the named batches are returned; otherwise the most recent batches are.
type HistoryRequest struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`
	RequestIDs []string `json:"request_ids,omitempty"`
}

func (r HistoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
	)
}

func validateRole(value interface{}) error {
	role, _ := value.(string)
	if !models.KnownRole(role) {
		return validation.NewError("validation_role", "must be one of: companion, local_guide, study_guide")
	}
	return nil
}

// ItemResponse is one scored place in a response.
type ItemResponse struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	Types            []string `json:"types"`
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	PhotoURL         *string  `json:"photo_url,omitempty"`
	MapsURI          *string  `json:"maps_uri,omitempty"`
	DistanceText     *string  `json:"distance_text,omitempty"`
	DurationText     *string  `json:"duration_text,omitempty"`
	FitScore         float64  `json:"fit_score"`
	Rationale        string   `json:"rationale"`
}

// GenerateResponse is one scored-places batch.
type GenerateResponse struct {
	RequestID        string         `json:"request_id"`
	UserID           string         `json:"user_id"`
	Role             models.Role    `json:"role"`
	Query            string         `json:"query"`
	Provider         string         `json:"provider"`
	WeatherCondition string         `json:"weather_condition"`
	TemperatureC     *float64       `json:"temperature_c,omitempty"`
	Degraded         bool           `json:"degraded"`
	FallbackReason   *string        `json:"fallback_reason,omitempty"`
	Items            []ItemResponse `json:"items"`
	CreatedAt        time.Time      `json:"created_at"`
}

// HistoryBatchResponse is one persisted batch in history output.
type HistoryBatchResponse struct {
	RequestID        string         `json:"request_id"`
	Query            string         `json:"query"`
	WeatherCondition string         `json:"weather_condition"`
	Degraded         bool           `json:"degraded"`
	FallbackReason   *string        `json:"fallback_reason,omitempty"`
	Items            []ItemResponse `json:"items"`
	CreatedAt        time.Time      `json:"created_at"`
}

// HistoryResponse lists persisted batches newest first.
type HistoryResponse struct {
	UserID  string                 `json:"user_id"`
	Role    models.Role            `json:"role"`
	Batches []HistoryBatchResponse `json:"batches"`
}
