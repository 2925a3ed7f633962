package models

import "time"

// TravelMode is how the user intends to reach a recommended place.
type TravelMode string

const (
	TravelWalking TravelMode = "walking"
	TravelTransit TravelMode = "transit"
	TravelDriving TravelMode = "driving"
)

// RecommendationRequestRecord is one persisted scored-places batch.
type RecommendationRequestRecord struct {
	ID                   int64
	RequestID            string
	UserID               string
	Role                 Role
	Query                string
	MaxResults           int
	PreferenceTags       []string
	TravelMode           TravelMode
	UserLocationGeohash  string
	UserLocationRegion   string
	WeatherCondition     string
	TemperatureC         *float64
	Degraded             bool
	FallbackReason       *string
	CreatedAt            time.Time
}

// RecommendationItemRecord is one scored place within a batch.
// Items in a response are ordered by FitScore descending.
type RecommendationItemRecord struct {
	ID               int64
	RequestPK        int64
	PlaceID          string
	Name             string
	Address          string
	Rating           *float64
	UserRatingsTotal *int
	Types            []string
	PlaceLatitude    float64
	PlaceLongitude   float64
	PhotoURL         *string
	MapsURI          *string
	DistanceText     *string
	DurationText     *string
	FitScore         float64
	Rationale        string
	CreatedAt        time.Time
}
