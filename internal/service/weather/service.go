package weather

import (
	"context"
	"log/slog"

	"companionhk/internal/provider"
)

// Service wraps the resolved weather provider and guarantees a usable
// snapshot: callers always get a condition, degraded or not.
type Service struct {
	resolver *provider.Resolver
	logger   *slog.Logger
}

func NewService(resolver *provider.Resolver, logger *slog.Logger) *Service {
	return &Service{
		resolver: resolver,
		logger:   logger,
	}
}

// Snapshot returns current conditions at the coordinate. When the live
// provider is disabled or fails, the snapshot degrades to condition
// "unknown" with the reason recorded.
func (s *Service) Snapshot(ctx context.Context, lat, lng float64) *provider.Weather {
	weatherProvider, live := s.resolver.ResolveWeather()

	snapshot, err := weatherProvider.GetCurrentWeather(ctx, lat, lng, "auto")
	if err != nil || snapshot == nil {
		if err != nil {
			s.logger.Warn("weather lookup failed",
				"provider", weatherProvider.Name(),
				"error", err)
		}
		reason := "provider_disabled_or_unavailable"
		return &provider.Weather{
			Condition:      "unknown",
			Source:         weatherProvider.Name(),
			Degraded:       true,
			FallbackReason: &reason,
		}
	}

	if !live {
		reason := "provider_disabled_or_unavailable"
		snapshot.Degraded = true
		snapshot.FallbackReason = &reason
	}
	return snapshot
}
