package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"companionhk/internal/config"
	"companionhk/internal/domain/models"
)

const (
	placesSearchURL = "https://places.googleapis.com/v1/places:searchText"
	routesURL       = "https://routes.googleapis.com/directions/v2:computeRoutes"
)

// GoogleMapsProvider calls the Places and Routes HTTP APIs.
type GoogleMapsProvider struct {
	apiKey     string
	language   string
	httpClient *http.Client
}

func NewGoogleMapsProvider(cfg *config.Config) *GoogleMapsProvider {
	return &GoogleMapsProvider{
		apiKey:   cfg.GoogleMapsAPIKey,
		language: cfg.MapsLanguage,
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
	}
}

func (p *GoogleMapsProvider) Name() string {
	return "google-maps"
}

type placesSearchRequest struct {
	TextQuery      string             `json:"textQuery"`
	LanguageCode   string             `json:"languageCode,omitempty"`
	MaxResultCount int                `json:"maxResultCount"`
	LocationBias   *placesLocationBias `json:"locationBias,omitempty"`
}

type placesLocationBias struct {
	Circle struct {
		Center struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"center"`
		Radius float64 `json:"radius"`
	} `json:"circle"`
}

type placesSearchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string   `json:"formattedAddress"`
		Rating           *float64 `json:"rating"`
		UserRatingCount  *int     `json:"userRatingCount"`
		Types            []string `json:"types"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		GoogleMapsURI string `json:"googleMapsUri"`
		Photos        []struct {
			Name string `json:"name"`
		} `json:"photos"`
	} `json:"places"`
}

// SearchPlaces runs a Places text search biased to a circle around the user.
func (p *GoogleMapsProvider) SearchPlaces(ctx context.Context, query string, lat, lng float64, radiusM int, maxResults int) ([]Place, error) {
	reqBody := placesSearchRequest{
		TextQuery:      query,
		LanguageCode:   p.language,
		MaxResultCount: maxResults,
	}
	bias := &placesLocationBias{}
	bias.Circle.Center.Latitude = lat
	bias.Circle.Center.Longitude = lng
	bias.Circle.Radius = float64(radiusM)
	reqBody.LocationBias = bias

	var resp placesSearchResponse
	fieldMask := "places.id,places.displayName,places.formattedAddress,places.rating,places.userRatingCount,places.types,places.location,places.googleMapsUri,places.photos"
	if err := p.post(ctx, placesSearchURL, fieldMask, reqBody, &resp); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(resp.Places))
	for _, raw := range resp.Places {
		place := Place{
			PlaceID:          raw.ID,
			Name:             raw.DisplayName.Text,
			Address:          raw.FormattedAddress,
			Rating:           raw.Rating,
			UserRatingsTotal: raw.UserRatingCount,
			Types:            raw.Types,
			Latitude:         raw.Location.Latitude,
			Longitude:        raw.Location.Longitude,
		}
		if raw.GoogleMapsURI != "" {
			uri := raw.GoogleMapsURI
			place.MapsURI = &uri
		}
		if len(raw.Photos) > 0 && raw.Photos[0].Name != "" {
			photoURL := fmt.Sprintf("https://places.googleapis.com/v1/%s/media?maxWidthPx=640&key=%s", raw.Photos[0].Name, p.apiKey)
			place.PhotoURL = &photoURL
		}
		places = append(places, place)
	}
	return places, nil
}

type computeRoutesRequest struct {
	Origin      routeWaypoint `json:"origin"`
	Destination routeWaypoint `json:"destination"`
	TravelMode  string        `json:"travelMode"`
}

type routeWaypoint struct {
	Location struct {
		LatLng struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"latLng"`
	} `json:"location"`
}

type computeRoutesResponse struct {
	Routes []struct {
		DistanceMeters int    `json:"distanceMeters"`
		Duration       string `json:"duration"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// GetRoute estimates one route between two coordinates.
func (p *GoogleMapsProvider) GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*Route, error) {
	reqBody := computeRoutesRequest{TravelMode: routesTravelMode(mode)}
	reqBody.Origin.Location.LatLng.Latitude = originLat
	reqBody.Origin.Location.LatLng.Longitude = originLng
	reqBody.Destination.Location.LatLng.Latitude = destLat
	reqBody.Destination.Location.LatLng.Longitude = destLng

	var resp computeRoutesResponse
	fieldMask := "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline"
	if err := p.post(ctx, routesURL, fieldMask, reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("routes: no route returned")
	}

	raw := resp.Routes[0]
	route := &Route{
		DistanceMeters:  raw.DistanceMeters,
		DurationSeconds: parseRouteDuration(raw.Duration),
	}
	if raw.Polyline.EncodedPolyline != "" {
		polyline := raw.Polyline.EncodedPolyline
		route.Polyline = &polyline
	}
	return route, nil
}

func (p *GoogleMapsProvider) post(ctx context.Context, url, fieldMask string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal maps request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create maps request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("maps request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maps request: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode maps response: %w", err)
	}
	return nil
}

func routesTravelMode(mode models.TravelMode) string {
	switch mode {
	case models.TravelTransit:
		return "TRANSIT"
	case models.TravelDriving:
		return "DRIVE"
	default:
		return "WALK"
	}
}

// parseRouteDuration reads the API's "123s" duration strings.
func parseRouteDuration(raw string) int {
	var seconds float64
	if _, err := fmt.Sscanf(raw, "%fs", &seconds); err != nil {
		return 0
	}
	return int(seconds)
}

// StubMapsProvider stands in when live place search is unavailable. It
// returns no results so callers fall back to the local catalog.
type StubMapsProvider struct{}

func NewStubMapsProvider() *StubMapsProvider {
	return &StubMapsProvider{}
}

func (p *StubMapsProvider) Name() string {
	return "maps-stub"
}

func (p *StubMapsProvider) SearchPlaces(ctx context.Context, query string, lat, lng float64, radiusM int, maxResults int) ([]Place, error) {
	return nil, nil
}

func (p *StubMapsProvider) GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*Route, error) {
	return nil, nil
}
