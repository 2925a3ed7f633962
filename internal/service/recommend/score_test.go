package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"companionhk/internal/provider"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestRatingScore(t *testing.T) {
	assert.Equal(t, 0.35, ratingScore(nil))
	assert.Equal(t, 1.0, ratingScore(floatPtr(5)))
	assert.InDelta(t, 0.9, ratingScore(floatPtr(4.5)), 1e-9)
}

func TestReviewScore(t *testing.T) {
	assert.Equal(t, 0.1, reviewScore(nil))
	assert.Equal(t, 0.1, reviewScore(intPtr(0)))
	assert.InDelta(t, 1.0, reviewScore(intPtr(999)), 1e-3)
	// Volume saturates; a million reviews still caps at 1.
	assert.Equal(t, 1.0, reviewScore(intPtr(1000000)))
}

func TestDistanceScore(t *testing.T) {
	assert.Equal(t, 0.4, distanceScore(nil))
	assert.Equal(t, 1.0, distanceScore(floatPtr(500)))
	assert.Equal(t, 1.0, distanceScore(floatPtr(1000)))
	assert.InDelta(t, 0.5, distanceScore(floatPtr(6000)), 1e-9)
	assert.Equal(t, 0.0, distanceScore(floatPtr(20000)))
}

func TestWeatherFitScore(t *testing.T) {
	assert.Equal(t, 1.0, weatherFitScore("rain", []string{"cafe", "food"}))
	assert.Equal(t, 0.45, weatherFitScore("thunderstorm", []string{"park"}))
	assert.Equal(t, 1.0, weatherFitScore("clear", []string{"park", "point_of_interest"}))
	assert.Equal(t, 0.6, weatherFitScore("partly_cloudy", []string{"museum"}))
	assert.Equal(t, 0.7, weatherFitScore("unknown", []string{"park"}))
	assert.Equal(t, 0.7, weatherFitScore("cloudy", []string{"cafe"}))
}

func TestRelevanceScore(t *testing.T) {
	place := provider.Place{
		Name:    "Kowloon Park",
		Address: "22 Austin Road Tsim Sha Tsui",
		Types:   []string{"park", "point_of_interest"},
	}

	assert.Equal(t, 1.0, relevanceScore("park", place))
	assert.Equal(t, 0.5, relevanceScore("park beach", place))
	assert.Equal(t, 0.0, relevanceScore("noodles", place))
	// A tokenless query is neutral rather than zero.
	assert.Equal(t, 0.5, relevanceScore("", place))
}

func TestPreferenceScore(t *testing.T) {
	place := provider.Place{
		Name:  "Victoria Park",
		Types: []string{"park", "point_of_interest"},
	}

	assert.Equal(t, 0.5, preferenceScore(nil, place))
	assert.Equal(t, 1.0, preferenceScore([]string{"park"}, place))
	assert.Equal(t, 0.5, preferenceScore([]string{"park", "cafe"}, place))
	assert.Equal(t, 0.2, preferenceScore([]string{"cafe"}, place))
}

func TestTotalFitScoreBounds(t *testing.T) {
	place := provider.Place{
		Name:             "Kowloon Park",
		Address:          "22 Austin Road Tsim Sha Tsui",
		Rating:           floatPtr(4.5),
		UserRatingsTotal: intPtr(12000),
		Types:            []string{"park", "point_of_interest"},
	}

	score := totalFitScore("park", place, floatPtr(400), "clear", []string{"park"})
	assert.Greater(t, score, 0.9)
	assert.LessOrEqual(t, score, 1.0)
}

func TestCatalogFitScoreFloor(t *testing.T) {
	place := provider.Place{Name: "Quinary", Address: "56-58 Hollywood Road Central"}

	// Nothing matches and distance is unknown, but the floor holds.
	assert.Equal(t, 0.35, catalogFitScore("noodles", place, nil))
}

func TestApproxDistanceMeters(t *testing.T) {
	// Kowloon Park to K11 MUSEA, roughly a kilometre apart.
	distance := approxDistanceMeters(22.3019, 114.1716, 22.2933, 114.1745)
	assert.Greater(t, distance, 900.0)
	assert.Less(t, distance, 1100.0)

	// Identical points still report a positive distance.
	assert.Equal(t, 1.0, approxDistanceMeters(22.3, 114.17, 22.3, 114.17))
}

func TestFormatDistanceText(t *testing.T) {
	assert.Equal(t, "50 m", formatDistanceText(10))
	assert.Equal(t, "450 m", formatDistanceText(460))
	assert.Equal(t, "950 m", formatDistanceText(955))
	assert.Equal(t, "1.2 km", formatDistanceText(1234))
	assert.Equal(t, "12.0 km", formatDistanceText(12000))
}

func TestFormatWalkingDurationText(t *testing.T) {
	assert.Equal(t, "3 mins", formatWalkingDurationText(50))
	assert.Equal(t, "5 mins", formatWalkingDurationText(400))
	assert.Equal(t, "13 mins", formatWalkingDurationText(1000))
}

func TestCatalogPlaces(t *testing.T) {
	places := CatalogPlaces()
	assert.Len(t, places, 14)

	for _, place := range places {
		assert.NotEmpty(t, place.PlaceID)
		assert.NotEmpty(t, place.Name)
		assert.NotEmpty(t, place.Types)
		assert.NotNil(t, place.MapsURI)
	}
}
