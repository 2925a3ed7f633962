package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
)

// PostgresRecommendationRepository implements the RecommendationRepository interface using PostgreSQL
type PostgresRecommendationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewRecommendationRepository creates a new PostgresRecommendationRepository
func NewRecommendationRepository(config *RepositoryConfig) repositories.RecommendationRepository {
	return &PostgresRecommendationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// CreateRequest persists one scored-places batch header
func (r *PostgresRecommendationRepository) CreateRequest(ctx context.Context, request *models.RecommendationRequestRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			request_id, user_id, role, query, max_results, preference_tags,
			travel_mode, user_location_geohash, user_location_region,
			weather_condition, temperature_c, degraded, fallback_reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`, r.tables.RecommendationRequests)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		request.RequestID,
		request.UserID,
		request.Role,
		request.Query,
		request.MaxResults,
		request.PreferenceTags,
		request.TravelMode,
		request.UserLocationGeohash,
		request.UserLocationRegion,
		request.WeatherCondition,
		request.TemperatureC,
		request.Degraded,
		request.FallbackReason,
	).Scan(&request.ID, &request.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recommendation request: %w", err)
	}

	return nil
}

// CreateItems persists the scored items of a batch
func (r *PostgresRecommendationRepository) CreateItems(ctx context.Context, requestPK int64, items []models.RecommendationItemRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			request_pk, place_id, name, address, rating, user_ratings_total,
			types, place_latitude, place_longitude, photo_url, maps_uri,
			distance_text, duration_text, fit_score, rationale, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`, r.tables.RecommendationItems)

	executor := GetExecutor(ctx, r.pool)
	for i := range items {
		item := &items[i]
		item.RequestPK = requestPK
		_, err := executor.Exec(ctx, query,
			item.RequestPK,
			item.PlaceID,
			item.Name,
			item.Address,
			item.Rating,
			item.UserRatingsTotal,
			item.Types,
			item.PlaceLatitude,
			item.PlaceLongitude,
			item.PhotoURL,
			item.MapsURI,
			item.DistanceText,
			item.DurationText,
			item.FitScore,
			item.Rationale,
		)
		if err != nil {
			return fmt.Errorf("create recommendation item: %w", err)
		}
	}

	return nil
}

// ListRecent returns up to limit batches for (user, role), newest first
func (r *PostgresRecommendationRepository) ListRecent(ctx context.Context, userID string, role models.Role, limit int) ([]repositories.RecommendationWithItems, error) {
	query := fmt.Sprintf(`
		SELECT id, request_id, user_id, role, query, max_results, preference_tags,
			travel_mode, user_location_geohash, user_location_region,
			weather_condition, temperature_c, degraded, fallback_reason, created_at
		FROM %s
		WHERE user_id = $1 AND role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, r.tables.RecommendationRequests)

	return r.listRequests(ctx, query, userID, role, limit)
}

// ListByRequestIDs returns persisted batches matching the request IDs
func (r *PostgresRecommendationRepository) ListByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) ([]repositories.RecommendationWithItems, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, request_id, user_id, role, query, max_results, preference_tags,
			travel_mode, user_location_geohash, user_location_region,
			weather_condition, temperature_c, degraded, fallback_reason, created_at
		FROM %s
		WHERE user_id = $1 AND role = $2 AND request_id = ANY($3)
		ORDER BY created_at DESC
	`, r.tables.RecommendationRequests)

	return r.listRequests(ctx, query, userID, role, requestIDs)
}

func (r *PostgresRecommendationRepository) listRequests(ctx context.Context, query string, args ...any) ([]repositories.RecommendationWithItems, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recommendation requests: %w", err)
	}
	defer rows.Close()

	var results []repositories.RecommendationWithItems
	for rows.Next() {
		var result repositories.RecommendationWithItems
		err := rows.Scan(
			&result.Request.ID,
			&result.Request.RequestID,
			&result.Request.UserID,
			&result.Request.Role,
			&result.Request.Query,
			&result.Request.MaxResults,
			&result.Request.PreferenceTags,
			&result.Request.TravelMode,
			&result.Request.UserLocationGeohash,
			&result.Request.UserLocationRegion,
			&result.Request.WeatherCondition,
			&result.Request.TemperatureC,
			&result.Request.Degraded,
			&result.Request.FallbackReason,
			&result.Request.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation request: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation requests: %w", err)
	}

	for i := range results {
		items, err := r.listItems(ctx, results[i].Request.ID)
		if err != nil {
			return nil, err
		}
		results[i].Items = items
	}

	return results, nil
}

func (r *PostgresRecommendationRepository) listItems(ctx context.Context, requestPK int64) ([]models.RecommendationItemRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, request_pk, place_id, name, address, rating, user_ratings_total,
			types, place_latitude, place_longitude, photo_url, maps_uri,
			distance_text, duration_text, fit_score, rationale, created_at
		FROM %s
		WHERE request_pk = $1
		ORDER BY fit_score DESC
	`, r.tables.RecommendationItems)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, requestPK)
	if err != nil {
		return nil, fmt.Errorf("list recommendation items: %w", err)
	}
	defer rows.Close()

	var items []models.RecommendationItemRecord
	for rows.Next() {
		var item models.RecommendationItemRecord
		err := rows.Scan(
			&item.ID,
			&item.RequestPK,
			&item.PlaceID,
			&item.Name,
			&item.Address,
			&item.Rating,
			&item.UserRatingsTotal,
			&item.Types,
			&item.PlaceLatitude,
			&item.PlaceLongitude,
			&item.PhotoURL,
			&item.MapsURI,
			&item.DistanceText,
			&item.DurationText,
			&item.FitScore,
			&item.Rationale,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendation items: %w", err)
	}

	return items, nil
}

// DeleteByRequestIDs removes batches created by the given request IDs
func (r *PostgresRecommendationRepository) DeleteByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) (int64, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}

	executor := GetExecutor(ctx, r.pool)

	itemQuery := fmt.Sprintf(`
		DELETE FROM %s WHERE request_pk IN (
			SELECT id FROM %s WHERE user_id = $1 AND role = $2 AND request_id = ANY($3)
		)
	`, r.tables.RecommendationItems, r.tables.RecommendationRequests)
	if _, err := executor.Exec(ctx, itemQuery, userID, role, requestIDs); err != nil {
		return 0, fmt.Errorf("delete recommendation items: %w", err)
	}

	requestQuery := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = $1 AND role = $2 AND request_id = ANY($3)
	`, r.tables.RecommendationRequests)
	tag, err := executor.Exec(ctx, requestQuery, userID, role, requestIDs)
	if err != nil {
		return 0, fmt.Errorf("delete recommendation requests: %w", err)
	}

	return tag.RowsAffected(), nil
}
