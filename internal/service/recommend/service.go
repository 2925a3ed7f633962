package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"companionhk/internal/config"
	"companionhk/internal/domain"
	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
	"companionhk/internal/privacy"
	"companionhk/internal/provider"
	"companionhk/internal/service/weather"
)

const (
	minResults        = 3
	maxResultsCap     = 5
	defaultResults    = 4
	historyBatchLimit = 20
)

// Hong Kong city centre, used when the request carries no coordinate.
const (
	defaultLatitude  = 22.3193
	defaultLongitude = 114.1694
)

var discoveryTerms = []string{"cafe", "park", "museum", "restaurant"}

const catalogRationale = "Known Hong Kong option matched to '%s' while live place data is limited."

// Service scores nearby places for a query, blending live place search,
// current weather, and stated preferences. When live search is unavailable
// or thin, the built-in catalog stands in and the batch is marked degraded.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	recRepo   repositories.RecommendationRepository
	chatRepo  repositories.ChatRepository
	auditRepo repositories.AuditRepository
	txm       repositories.TransactionManager
	resolver  *provider.Resolver
	weather   *weather.Service
}

func NewService(
	cfg *config.Config,
	logger *slog.Logger,
	recRepo repositories.RecommendationRepository,
	chatRepo repositories.ChatRepository,
	auditRepo repositories.AuditRepository,
	txm repositories.TransactionManager,
	resolver *provider.Resolver,
	weatherSvc *weather.Service,
) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		recRepo:   recRepo,
		chatRepo:  chatRepo,
		auditRepo: auditRepo,
		txm:       txm,
		resolver:  resolver,
		weather:   weatherSvc,
	}
}

// Generate produces one scored-places batch.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	role := models.Role(req.Role)
	requestID := uuid.NewString()

	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = defaultResults
	}
	if maxResults < minResults {
		maxResults = minResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	lat, lng := defaultLatitude, defaultLongitude
	hasLocation := req.Location != nil
	if hasLocation {
		lat, lng = req.Location.Latitude, req.Location.Longitude
	}

	snapshot := s.weather.Snapshot(ctx, lat, lng)

	mapsProvider, live := s.resolver.ResolveMaps()
	var fallbackReason *string
	var candidates []provider.Place
	if !live {
		reason := "maps_provider_disabled_or_unavailable"
		fallbackReason = &reason
	} else {
		candidates = s.discoverPlaces(ctx, mapsProvider, req.Query, lat, lng, maxResults)
		if len(candidates) == 0 {
			reason := "live_place_search_empty"
			fallbackReason = &reason
		} else if len(candidates) < minResults {
			reason := "insufficient_live_place_results"
			fallbackReason = &reason
		}
	}

	degraded := fallbackReason != nil
	if degraded {
		candidates = CatalogPlaces()
	}

	items := s.scoreCandidates(ctx, req, mapsProvider, candidates, degraded, hasLocation, lat, lng, snapshot.Condition, maxResults)

	createdAt := time.Now().UTC()
	s.persistBatch(ctx, req, role, requestID, maxResults, snapshot, mapsProvider.Name(), live, degraded, fallbackReason, hasLocation, lat, lng, items)

	return &GenerateResponse{
		RequestID:        requestID,
		UserID:           req.UserID,
		Role:             role,
		Query:            req.Query,
		Provider:         mapsProvider.Name(),
		WeatherCondition: snapshot.Condition,
		TemperatureC:     snapshot.TemperatureC,
		Degraded:         degraded,
		FallbackReason:   fallbackReason,
		Items:            items,
		CreatedAt:        createdAt,
	}, nil
}

// discoverPlaces widens the user's query with common discovery terms and
// deduplicates the merged results, stopping at twice the requested count.
func (s *Service) discoverPlaces(ctx context.Context, mapsProvider provider.MapsProvider, query string, lat, lng float64, maxResults int) []provider.Place {
	queries := []string{query}
	lowered := strings.ToLower(query)
	for _, term := range discoveryTerms {
		if !strings.Contains(lowered, term) {
			queries = append(queries, term+" near me")
		}
	}

	target := 2 * maxResults
	seen := make(map[string]bool)
	var candidates []provider.Place
	for _, searchQuery := range queries {
		if len(candidates) >= target {
			break
		}

		places, err := mapsProvider.SearchPlaces(ctx, searchQuery, lat, lng, s.cfg.MapsDefaultRadiusM, maxResults)
		if err != nil {
			s.logger.Warn("place search failed",
				"provider", mapsProvider.Name(),
				"query", searchQuery,
				"error", err)
			continue
		}

		for _, place := range places {
			key := place.PlaceID
			if key == "" {
				key = strings.ToLower(place.Name + "|" + place.Address)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, place)
			if len(candidates) >= target {
				break
			}
		}
	}
	return candidates
}

// scoreCandidates scores and ranks the candidate set. In the live path each
// candidate gets a route estimate from the origin in the requested travel
// mode; a failed route call falls back to the straight-line approximation for
// that candidate. The catalog path never calls out.
func (s *Service) scoreCandidates(ctx context.Context, req GenerateRequest, mapsProvider provider.MapsProvider, candidates []provider.Place, degraded, hasLocation bool, lat, lng float64, condition string, maxResults int) []ItemResponse {
	type scored struct {
		place     provider.Place
		distanceM *float64
		route     *provider.Route
		fit       float64
	}

	mode := travelMode(req.TravelMode)

	scoredPlaces := make([]scored, 0, len(candidates))
	for _, place := range candidates {
		var distanceM *float64
		var route *provider.Route
		if hasLocation {
			if !degraded {
				var err error
				route, err = mapsProvider.GetRoute(ctx, lat, lng, place.Latitude, place.Longitude, mode)
				if err != nil {
					s.logger.Warn("route estimate failed",
						"provider", mapsProvider.Name(),
						"place", place.Name,
						"error", err)
					route = nil
				}
			}
			if route != nil && route.DistanceMeters > 0 {
				distance := float64(route.DistanceMeters)
				distanceM = &distance
			} else {
				route = nil
				distance := approxDistanceMeters(lat, lng, place.Latitude, place.Longitude)
				distanceM = &distance
			}
		}

		var fit float64
		if degraded {
			fit = catalogFitScore(req.Query, place, distanceM)
		} else {
			fit = totalFitScore(req.Query, place, distanceM, condition, req.PreferenceTags)
		}
		scoredPlaces = append(scoredPlaces, scored{place: place, distanceM: distanceM, route: route, fit: fit})
	}

	// Insertion sort by fit descending; candidate sets are small.
	for i := 1; i < len(scoredPlaces); i++ {
		for j := i; j > 0 && scoredPlaces[j].fit > scoredPlaces[j-1].fit; j-- {
			scoredPlaces[j], scoredPlaces[j-1] = scoredPlaces[j-1], scoredPlaces[j]
		}
	}
	if len(scoredPlaces) > maxResults {
		scoredPlaces = scoredPlaces[:maxResults]
	}

	items := make([]ItemResponse, 0, len(scoredPlaces))
	for _, candidate := range scoredPlaces {
		item := ItemResponse{
			PlaceID:          candidate.place.PlaceID,
			Name:             candidate.place.Name,
			Address:          candidate.place.Address,
			Rating:           candidate.place.Rating,
			UserRatingsTotal: candidate.place.UserRatingsTotal,
			Types:            candidate.place.Types,
			Latitude:         candidate.place.Latitude,
			Longitude:        candidate.place.Longitude,
			PhotoURL:         candidate.place.PhotoURL,
			MapsURI:          candidate.place.MapsURI,
			FitScore:         candidate.fit,
		}
		if item.MapsURI == nil {
			uri := mapsSearchURI(item.Name, item.Address)
			item.MapsURI = &uri
		}
		if candidate.route != nil {
			distanceText := formatDistanceText(float64(candidate.route.DistanceMeters))
			durationText := formatRouteDurationText(candidate.route.DurationSeconds)
			item.DistanceText = &distanceText
			item.DurationText = &durationText
		} else if candidate.distanceM != nil {
			distanceText := formatDistanceText(*candidate.distanceM)
			durationText := formatWalkingDurationText(*candidate.distanceM)
			item.DistanceText = &distanceText
			item.DurationText = &durationText
		}
		if degraded {
			item.Rationale = fmt.Sprintf(catalogRationale, req.Query)
		} else {
			item.Rationale = fmt.Sprintf("Scored for '%s' on relevance, rating, reviews, distance, and current weather.", req.Query)
		}
		items = append(items, item)
	}
	return items
}

// persistBatch writes the batch, its items, provider events, and the audit
// row in one transaction. Failures are logged and never fail the request.
func (s *Service) persistBatch(
	ctx context.Context,
	req GenerateRequest,
	role models.Role,
	requestID string,
	maxResults int,
	snapshot *provider.Weather,
	mapsProviderName string,
	mapsLive bool,
	degraded bool,
	fallbackReason *string,
	hasLocation bool,
	lat, lng float64,
	items []ItemResponse,
) {
	record := &models.RecommendationRequestRecord{
		RequestID:        requestID,
		UserID:           req.UserID,
		Role:             role,
		Query:            req.Query,
		MaxResults:       maxResults,
		PreferenceTags:   req.PreferenceTags,
		TravelMode:       travelMode(req.TravelMode),
		WeatherCondition: snapshot.Condition,
		TemperatureC:     snapshot.TemperatureC,
		Degraded:         degraded,
		FallbackReason:   fallbackReason,
	}
	if hasLocation {
		record.UserLocationGeohash = privacy.EncodeLocation(lat, lng, s.cfg.LocationGeohashPrecision, s.cfg.StorePreciseUserLocation)
		record.UserLocationRegion = req.Location.Region
	}

	itemRecords := make([]models.RecommendationItemRecord, 0, len(items))
	for _, item := range items {
		itemRecords = append(itemRecords, models.RecommendationItemRecord{
			PlaceID:          item.PlaceID,
			Name:             item.Name,
			Address:          item.Address,
			Rating:           item.Rating,
			UserRatingsTotal: item.UserRatingsTotal,
			Types:            item.Types,
			PlaceLatitude:    item.Latitude,
			PlaceLongitude:   item.Longitude,
			PhotoURL:         item.PhotoURL,
			MapsURI:          item.MapsURI,
			DistanceText:     item.DistanceText,
			DurationText:     item.DurationText,
			FitScore:         item.FitScore,
			Rationale:        item.Rationale,
		})
	}

	err := s.txm.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.chatRepo.EnsureUser(txCtx, req.UserID); err != nil {
			return err
		}
		if err := s.recRepo.CreateRequest(txCtx, record); err != nil {
			return err
		}
		if err := s.recRepo.CreateItems(txCtx, record.ID, itemRecords); err != nil {
			return err
		}

		mapsStatus := models.ProviderStatusSuccess
		if !mapsLive || degraded {
			mapsStatus = models.ProviderStatusFallback
		}
		if err := s.auditRepo.CreateProviderEvent(txCtx, &models.ProviderEvent{
			UserID:         &req.UserID,
			RequestID:      requestID,
			Role:           &role,
			Scope:          models.ScopeMaps,
			ProviderName:   mapsProviderName,
			Status:         mapsStatus,
			FallbackReason: fallbackReason,
		}); err != nil {
			return err
		}

		weatherStatus := models.ProviderStatusSuccess
		if snapshot.Degraded {
			weatherStatus = models.ProviderStatusDegraded
		}
		if err := s.auditRepo.CreateProviderEvent(txCtx, &models.ProviderEvent{
			UserID:         &req.UserID,
			RequestID:      requestID,
			Role:           &role,
			Scope:          models.ScopeWeather,
			ProviderName:   snapshot.Source,
			Status:         weatherStatus,
			FallbackReason: snapshot.FallbackReason,
		}); err != nil {
			return err
		}

		return s.auditRepo.CreateAuditEvent(txCtx, &models.AuditEvent{
			EventType: models.AuditRecommendationRequest,
			UserID:    req.UserID,
			RequestID: requestID,
			Role:      role,
			Metadata: map[string]any{
				"query":       req.Query,
				"max_results": maxResults,
				"degraded":    degraded,
				"item_count":  len(itemRecords),
			},
		})
	})
	if err != nil {
		s.logger.Error("recommendation persistence failed, batch already delivered",
			"request_id", requestID,
			"user_id", req.UserID,
			"error", err)
	}
}

func travelMode(raw string) models.TravelMode {
	switch models.TravelMode(raw) {
	case models.TravelTransit:
		return models.TravelTransit
	case models.TravelDriving:
		return models.TravelDriving
	default:
		return models.TravelWalking
	}
}

// GetHistory returns persisted batches newest first: the batches named by
// request ID when any were given, the most recent ones otherwise.
func (s *Service) GetHistory(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	role := models.Role(req.Role)
	response := &HistoryResponse{
		UserID:  req.UserID,
		Role:    role,
		Batches: []HistoryBatchResponse{},
	}

	var batches []repositories.RecommendationWithItems
	var err error
	if len(req.RequestIDs) > 0 {
		batches, err = s.recRepo.ListByRequestIDs(ctx, req.UserID, role, req.RequestIDs)
	} else {
		batches, err = s.recRepo.ListRecent(ctx, req.UserID, role, historyBatchLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("list recommendation history: %w", err)
	}

	for _, batch := range batches {
		history := HistoryBatchResponse{
			RequestID:        batch.Request.RequestID,
			Query:            batch.Request.Query,
			WeatherCondition: batch.Request.WeatherCondition,
			Degraded:         batch.Request.Degraded,
			FallbackReason:   batch.Request.FallbackReason,
			CreatedAt:        batch.Request.CreatedAt,
			Items:            make([]ItemResponse, 0, len(batch.Items)),
		}
		for _, item := range batch.Items {
			history.Items = append(history.Items, ItemResponse{
				PlaceID:          item.PlaceID,
				Name:             item.Name,
				Address:          item.Address,
				Rating:           item.Rating,
				UserRatingsTotal: item.UserRatingsTotal,
				Types:            item.Types,
				Latitude:         item.PlaceLatitude,
				Longitude:        item.PlaceLongitude,
				PhotoURL:         item.PhotoURL,
				MapsURI:          item.MapsURI,
				DistanceText:     item.DistanceText,
				DurationText:     item.DurationText,
				FitScore:         item.FitScore,
				Rationale:        item.Rationale,
			})
		}
		response.Batches = append(response.Batches, history)
	}
	return response, nil
}
