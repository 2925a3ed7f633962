package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"

	"companionhk/internal/config"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider reads current conditions from the Open-Meteo forecast
// API. No API key is required.
type OpenMeteoProvider struct {
	httpClient *http.Client
}

func NewOpenMeteoProvider(cfg *config.Config) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		httpClient: &http.Client{
			Timeout: cfg.ProviderTimeout,
		},
	}
}

func (p *OpenMeteoProvider) Name() string {
	return "open-meteo"
}

type openMeteoResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
}

func (p *OpenMeteoProvider) GetCurrentWeather(ctx context.Context, lat, lng float64, timezone string) (*Weather, error) {
	if timezone == "" {
		timezone = "auto"
	}
	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,weather_code&timezone=%s",
		openMeteoURL, lat, lng, neturl.QueryEscape(timezone))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather request: status %d", resp.StatusCode)
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	temp := body.Current.Temperature
	return &Weather{
		Condition:    conditionFromWeatherCode(body.Current.WeatherCode),
		TemperatureC: &temp,
		Source:       p.Name(),
	}, nil
}

// conditionFromWeatherCode maps WMO weather codes to the coarse condition
// labels the recommendation scorer uses.
func conditionFromWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code >= 1 && code <= 2:
		return "partly_cloudy"
	case code == 3:
		return "cloudy"
	case code >= 45 && code <= 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain"
	case code >= 85 && code <= 86:
		return "snow"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}

// StubWeatherProvider stands in when the live provider is disabled.
type StubWeatherProvider struct{}

func NewStubWeatherProvider() *StubWeatherProvider {
	return &StubWeatherProvider{}
}

func (p *StubWeatherProvider) Name() string {
	return "weather-stub"
}

func (p *StubWeatherProvider) GetCurrentWeather(ctx context.Context, lat, lng float64, timezone string) (*Weather, error) {
	return &Weather{
		Condition: "unknown",
		Source:    p.Name(),
	}, nil
}
