package recommend

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionhk/internal/config"
	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
	"companionhk/internal/provider"
	"companionhk/internal/service/weather"
)

type fakeRecRepo struct {
	requests         []models.RecommendationRequestRecord
	items            []models.RecommendationItemRecord
	listedRequestIDs []string
}

func (r *fakeRecRepo) CreateRequest(ctx context.Context, request *models.RecommendationRequestRecord) error {
	request.ID = int64(len(r.requests) + 1)
	r.requests = append(r.requests, *request)
	return nil
}

func (r *fakeRecRepo) CreateItems(ctx context.Context, requestPK int64, items []models.RecommendationItemRecord) error {
	r.items = append(r.items, items...)
	return nil
}

func (r *fakeRecRepo) ListRecent(ctx context.Context, userID string, role models.Role, limit int) ([]repositories.RecommendationWithItems, error) {
	var result []repositories.RecommendationWithItems
	for i := len(r.requests) - 1; i >= 0; i-- {
		result = append(result, repositories.RecommendationWithItems{Request: r.requests[i]})
	}
	return result, nil
}

func (r *fakeRecRepo) ListByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) ([]repositories.RecommendationWithItems, error) {
	r.listedRequestIDs = append(r.listedRequestIDs, requestIDs...)
	var result []repositories.RecommendationWithItems
	for _, request := range r.requests {
		for _, id := range requestIDs {
			if request.RequestID == id {
				result = append(result, repositories.RecommendationWithItems{Request: request})
			}
		}
	}
	return result, nil
}

func (r *fakeRecRepo) DeleteByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) (int64, error) {
	return 0, nil
}

type fakeChatRepo struct {
	users []string
}

func (r *fakeChatRepo) EnsureUser(ctx context.Context, userID string) error {
	r.users = append(r.users, userID)
	return nil
}

func (r *fakeChatRepo) GetOrCreateThread(ctx context.Context, userID string, role models.Role, threadID string) (*models.Thread, error) {
	return &models.Thread{ID: 1, UserID: userID, Role: role, ThreadID: threadID}, nil
}

func (r *fakeChatRepo) GetCurrentThread(ctx context.Context, userID string, role models.Role) (*models.Thread, error) {
	return nil, nil
}

func (r *fakeChatRepo) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return nil
}

func (r *fakeChatRepo) CreateSafetyEvent(ctx context.Context, event *models.SafetyEvent) error {
	return nil
}

func (r *fakeChatRepo) ListRecentTurns(ctx context.Context, userID string, role models.Role, threadID string, limit int) ([]repositories.TurnWithSafety, error) {
	return nil, nil
}

func (r *fakeChatRepo) ListThreadRequestIDs(ctx context.Context, userID string, role models.Role, threadID string) ([]string, error) {
	return nil, nil
}

func (r *fakeChatRepo) DeleteThreadMessages(ctx context.Context, userID string, role models.Role, threadID string) (int64, error) {
	return 0, nil
}

type fakeAuditRepo struct {
	providerEvents []models.ProviderEvent
	auditEvents    []models.AuditEvent
}

func (r *fakeAuditRepo) CreateProviderEvent(ctx context.Context, event *models.ProviderEvent) error {
	r.providerEvents = append(r.providerEvents, *event)
	return nil
}

func (r *fakeAuditRepo) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	r.auditEvents = append(r.auditEvents, *event)
	return nil
}

type fakeTxManager struct{}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeMapsProvider struct {
	route      *provider.Route
	routeErr   error
	routeCalls int
	routeModes []models.TravelMode
}

func (m *fakeMapsProvider) Name() string {
	return "maps-fake"
}

func (m *fakeMapsProvider) SearchPlaces(ctx context.Context, query string, lat, lng float64, radiusM, maxResults int) ([]provider.Place, error) {
	return nil, nil
}

func (m *fakeMapsProvider) GetRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*provider.Route, error) {
	m.routeCalls++
	m.routeModes = append(m.routeModes, mode)
	return m.route, m.routeErr
}

func newTestService(cfg *config.Config) (*Service, *fakeRecRepo, *fakeAuditRepo) {
	logger := slog.Default()
	recRepo := &fakeRecRepo{}
	auditRepo := &fakeAuditRepo{}
	resolver := provider.NewResolver(cfg, logger)
	weatherSvc := weather.NewService(resolver, logger)
	service := NewService(cfg, logger, recRepo, &fakeChatRepo{}, auditRepo, &fakeTxManager{}, resolver, weatherSvc)
	return service, recRepo, auditRepo
}

func TestGenerateFallsBackToCatalog(t *testing.T) {
	cfg := &config.Config{LocationGeohashPrecision: 6}
	service, recRepo, auditRepo := newTestService(cfg)

	resp, err := service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "quiet park",
		Location: &LocationRequest{
			Latitude:  22.3019,
			Longitude: 114.1716,
		},
	})
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	require.NotNil(t, resp.FallbackReason)
	assert.Equal(t, "maps_provider_disabled_or_unavailable", *resp.FallbackReason)
	assert.Equal(t, "maps-stub", resp.Provider)
	assert.Equal(t, "unknown", resp.WeatherCondition)

	require.Len(t, resp.Items, 4)
	for i := 1; i < len(resp.Items); i++ {
		assert.GreaterOrEqual(t, resp.Items[i-1].FitScore, resp.Items[i].FitScore)
	}
	for _, item := range resp.Items {
		assert.GreaterOrEqual(t, item.FitScore, 0.35)
		assert.NotNil(t, item.MapsURI)
		assert.NotNil(t, item.DistanceText)
		assert.NotNil(t, item.DurationText)
		assert.Contains(t, item.Rationale, "quiet park")
	}

	// Parks should outrank bars for a park query.
	assert.Contains(t, resp.Items[0].Types, "park")

	// Persisted batch and audit trail.
	require.Len(t, recRepo.requests, 1)
	assert.True(t, recRepo.requests[0].Degraded)
	assert.NotEmpty(t, recRepo.requests[0].UserLocationGeohash)
	assert.Len(t, recRepo.items, 4)
	assert.Len(t, auditRepo.auditEvents, 1)
	assert.Equal(t, models.AuditRecommendationRequest, auditRepo.auditEvents[0].EventType)
	assert.Len(t, auditRepo.providerEvents, 2)
}

func TestGenerateBoundsMaxResults(t *testing.T) {
	cfg := &config.Config{LocationGeohashPrecision: 6}
	service, _, _ := newTestService(cfg)

	resp, err := service.Generate(context.Background(), GenerateRequest{
		UserID:     "u1",
		Role:       "local_guide",
		Query:      "park",
		MaxResults: 50,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 5)

	resp, err = service.Generate(context.Background(), GenerateRequest{
		UserID:     "u1",
		Role:       "local_guide",
		Query:      "park",
		MaxResults: 1,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 3)
}

func TestGenerateWithoutLocationOmitsDistance(t *testing.T) {
	cfg := &config.Config{LocationGeohashPrecision: 6}
	service, recRepo, _ := newTestService(cfg)

	resp, err := service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "companion",
		Query:  "museum",
	})
	require.NoError(t, err)

	for _, item := range resp.Items {
		assert.Nil(t, item.DistanceText)
		assert.Nil(t, item.DurationText)
	}
	assert.Empty(t, recRepo.requests[0].UserLocationGeohash)
}

func TestGenerateValidation(t *testing.T) {
	service, _, _ := newTestService(&config.Config{})

	_, err := service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "pirate",
		Query:  "park",
	})
	assert.Error(t, err)

	_, err = service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "companion",
	})
	assert.Error(t, err)
}

func TestScoreCandidatesUsesRouteEstimates(t *testing.T) {
	service, _, _ := newTestService(&config.Config{LocationGeohashPrecision: 6})
	maps := &fakeMapsProvider{
		route: &provider.Route{DistanceMeters: 2000, DurationSeconds: 600},
	}

	req := GenerateRequest{
		UserID:     "u1",
		Role:       "local_guide",
		Query:      "park",
		TravelMode: "transit",
	}
	candidates := CatalogPlaces()[:3]

	items := service.scoreCandidates(context.Background(), req, maps, candidates, false, true, 22.3019, 114.1716, "clear", 3)

	assert.Equal(t, len(candidates), maps.routeCalls)
	for _, mode := range maps.routeModes {
		assert.Equal(t, models.TravelTransit, mode)
	}
	require.Len(t, items, 3)
	for _, item := range items {
		require.NotNil(t, item.DistanceText)
		require.NotNil(t, item.DurationText)
		assert.Equal(t, "2.0 km", *item.DistanceText)
		assert.Equal(t, "10 mins", *item.DurationText)
	}
}

func TestScoreCandidatesRouteFailureFallsBack(t *testing.T) {
	service, _, _ := newTestService(&config.Config{LocationGeohashPrecision: 6})
	maps := &fakeMapsProvider{routeErr: assert.AnError}

	req := GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "park",
	}
	// Kowloon Park, same coordinate as the origin below.
	candidates := CatalogPlaces()[1:2]

	items := service.scoreCandidates(context.Background(), req, maps, candidates, false, true, 22.3019, 114.1716, "clear", 3)

	assert.Equal(t, 1, maps.routeCalls)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].DistanceText)
	require.NotNil(t, items[0].DurationText)
	assert.Equal(t, "50 m", *items[0].DistanceText)
	assert.Equal(t, "3 mins", *items[0].DurationText)
}

func TestScoreCandidatesCatalogPathSkipsRouting(t *testing.T) {
	service, _, _ := newTestService(&config.Config{LocationGeohashPrecision: 6})
	maps := &fakeMapsProvider{
		route: &provider.Route{DistanceMeters: 2000, DurationSeconds: 600},
	}

	req := GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "park",
	}

	service.scoreCandidates(context.Background(), req, maps, CatalogPlaces(), true, true, 22.3019, 114.1716, "clear", 3)

	assert.Zero(t, maps.routeCalls)
}

func TestGetHistoryByRequestIDs(t *testing.T) {
	cfg := &config.Config{LocationGeohashPrecision: 6}
	service, recRepo, _ := newTestService(cfg)

	first, err := service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "park",
	})
	require.NoError(t, err)

	_, err = service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "museum",
	})
	require.NoError(t, err)

	history, err := service.GetHistory(context.Background(), HistoryRequest{
		UserID:     "u1",
		Role:       "local_guide",
		RequestIDs: []string{first.RequestID},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{first.RequestID}, recRepo.listedRequestIDs)
	require.Len(t, history.Batches, 1)
	assert.Equal(t, first.RequestID, history.Batches[0].RequestID)
	assert.Equal(t, "park", history.Batches[0].Query)
}

func TestGetHistory(t *testing.T) {
	cfg := &config.Config{LocationGeohashPrecision: 6}
	service, _, _ := newTestService(cfg)

	_, err := service.Generate(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "local_guide",
		Query:  "park",
	})
	require.NoError(t, err)

	history, err := service.GetHistory(context.Background(), HistoryRequest{
		UserID: "u1",
		Role:   "local_guide",
	})
	require.NoError(t, err)
	require.Len(t, history.Batches, 1)
	assert.Equal(t, "park", history.Batches[0].Query)
	assert.True(t, history.Batches[0].Degraded)
}
