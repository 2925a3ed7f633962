package repositories

import (
	"context"

	"companionhk/internal/domain/models"
)

// RecommendationWithItems pairs a persisted request with its scored items.
type RecommendationWithItems struct {
	Request models.RecommendationRequestRecord
	Items   []models.RecommendationItemRecord
}

// RecommendationRepository persists scored-places batches.
type RecommendationRepository interface {
	CreateRequest(ctx context.Context, request *models.RecommendationRequestRecord) error
	CreateItems(ctx context.Context, requestPK int64, items []models.RecommendationItemRecord) error

	// ListRecent returns up to limit persisted batches for (user, role),
	// newest first.
	ListRecent(ctx context.Context, userID string, role models.Role, limit int) ([]RecommendationWithItems, error)

	// ListByRequestIDs returns the persisted batches matching the given
	// request IDs for (user, role).
	ListByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) ([]RecommendationWithItems, error)

	// DeleteByRequestIDs removes batches created by the given request IDs and
	// returns the number of requests deleted.
	DeleteByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) (int64, error)
}
