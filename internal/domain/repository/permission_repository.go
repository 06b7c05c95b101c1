package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/errors"
)

// PermissionRepository is the cross-tenant permission store. Grants are
// append-only: revocation deactivates a record, a re-grant creates a new one.
type PermissionRepository interface {
	// FindBySourceTenant returns every permission record granted to
	// principals of the given tenant, active or not. The evaluator applies
	// the active/expiry filter so the decision uses a single clock.
	FindBySourceTenant(ctx context.Context, sourceTenantID string) ([]*models.CrossTenantPermission, errors.AppError)

	// Save persists a new grant.
	Save(ctx context.Context, permission *models.CrossTenantPermission) errors.AppError

	// Deactivate flips a grant inactive. The record itself is kept for audit.
	Deactivate(ctx context.Context, id uuid.UUID) errors.AppError
}
