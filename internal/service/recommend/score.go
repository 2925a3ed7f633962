package recommend

import (
	"fmt"
	"math"
	"strings"

	"companionhk/internal/provider"
)

// Fit score weights. They sum to 1.0; each sub-score is clamped to [0, 1].
const (
	weightRelevance  = 0.25
	weightRating     = 0.20
	weightReviews    = 0.15
	weightDistance   = 0.20
	weightWeatherFit = 0.10
	weightPreference = 0.10
)

var indoorConditions = map[string]bool{
	"rain":         true,
	"drizzle":      true,
	"thunderstorm": true,
	"snow":         true,
}

var outdoorConditions = map[string]bool{
	"clear":         true,
	"partly_cloudy": true,
}

var indoorTypes = map[string]bool{
	"cafe":          true,
	"restaurant":    true,
	"museum":        true,
	"shopping_mall": true,
	"library":       true,
}

var outdoorTypes = map[string]bool{
	"park":               true,
	"tourist_attraction": true,
	"campground":         true,
	"hiking_area":        true,
	"beach":              true,
}

func clamp01(value float64) float64 {
	return math.Min(math.Max(value, 0), 1)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// relevanceScore is the fraction of query tokens found in the place's name,
// address, or types. A tokenless query is treated as a neutral match.
func relevanceScore(query string, place provider.Place) float64 {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return 0.5
	}

	haystack := strings.ToLower(place.Name + " " + place.Address + " " + strings.Join(place.Types, " "))
	matched := 0
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(len(tokens)))
}

// ratingScore normalizes a 0..5 star rating; unrated places get a neutral
// prior rather than zero.
func ratingScore(rating *float64) float64 {
	if rating == nil {
		return 0.35
	}
	return clamp01(*rating / 5.0)
}

// reviewScore rewards review volume on a log scale that saturates around a
// thousand reviews.
func reviewScore(total *int) float64 {
	if total == nil || *total <= 0 {
		return 0.1
	}
	return clamp01(math.Log10(float64(*total)+1) / 3.0)
}

// distanceScore is flat within a kilometre, then decays linearly to zero at
// twelve kilometres. Unknown distances get a below-neutral prior.
func distanceScore(distanceM *float64) float64 {
	if distanceM == nil {
		return 0.4
	}
	if *distanceM <= 1000 {
		return 1.0
	}
	return clamp01(1.0 - *distanceM/12000.0)
}

// weatherFitScore matches place types against current conditions: indoor
// venues in wet weather, outdoor venues in clear weather.
func weatherFitScore(condition string, types []string) float64 {
	if indoorConditions[condition] {
		for _, placeType := range types {
			if indoorTypes[placeType] {
				return 1.0
			}
		}
		return 0.45
	}
	if outdoorConditions[condition] {
		for _, placeType := range types {
			if outdoorTypes[placeType] {
				return 1.0
			}
		}
		return 0.6
	}
	return 0.7
}

// preferenceScore is the fraction of preference tags matching the place's
// types or name. No tags is neutral; tags with no match keep a small floor.
func preferenceScore(tags []string, place provider.Place) float64 {
	if len(tags) == 0 {
		return 0.5
	}

	haystack := strings.ToLower(place.Name + " " + strings.Join(place.Types, " "))
	matched := 0
	for _, tag := range tags {
		if tag != "" && strings.Contains(haystack, strings.ToLower(tag)) {
			matched++
		}
	}
	if matched == 0 {
		return 0.2
	}
	return clamp01(float64(matched) / float64(len(tags)))
}

// totalFitScore blends the weighted sub-scores, rounded to four places.
func totalFitScore(query string, place provider.Place, distanceM *float64, weatherCondition string, tags []string) float64 {
	score := weightRelevance*relevanceScore(query, place) +
		weightRating*ratingScore(place.Rating) +
		weightReviews*reviewScore(place.UserRatingsTotal) +
		weightDistance*distanceScore(distanceM) +
		weightWeatherFit*weatherFitScore(weatherCondition, place.Types) +
		weightPreference*preferenceScore(tags, place)
	return round4(clamp01(score))
}

// catalogFitScore scores local-catalog fallbacks on relevance and distance
// only, with a floor so known options always surface.
func catalogFitScore(query string, place provider.Place, distanceM *float64) float64 {
	score := 0.65*relevanceScore(query, place) + 0.35*distanceScore(distanceM)
	return round4(math.Max(score, 0.35))
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}

// approxDistanceMeters is an equirectangular approximation, accurate enough
// at city scale.
func approxDistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	latMeters := (lat2 - lat1) * 111320.0
	lngMeters := (lng2 - lng1) * 111320.0 * math.Cos(lat1*math.Pi/180)
	distance := math.Sqrt(latMeters*latMeters + lngMeters*lngMeters)
	return math.Max(distance, 1)
}

// formatDistanceText rounds short distances to the nearest 50 metres and
// longer ones to a tenth of a kilometre.
func formatDistanceText(distanceM float64) string {
	if distanceM < 1000 {
		rounded := math.Round(distanceM/50) * 50
		if rounded < 50 {
			rounded = 50
		}
		return fmt.Sprintf("%d m", int(rounded))
	}
	return fmt.Sprintf("%.1f km", distanceM/1000)
}

// formatWalkingDurationText assumes 80 metres per minute with a three-minute
// floor. Used when no route estimate is available.
func formatWalkingDurationText(distanceM float64) string {
	minutes := math.Round(distanceM / 80)
	if minutes < 3 {
		minutes = 3
	}
	return fmt.Sprintf("%d mins", int(minutes))
}

// formatRouteDurationText renders a routed duration in whole minutes with a
// one-minute floor.
func formatRouteDurationText(seconds int) string {
	minutes := int(math.Round(float64(seconds) / 60))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d mins", minutes)
}
