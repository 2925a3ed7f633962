package repositories

import (
	"context"

	"companionhk/internal/domain/models"
)

// AuditRepository appends provider-health and application audit records.
type AuditRepository interface {
	CreateProviderEvent(ctx context.Context, event *models.ProviderEvent) error
	CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error
}
