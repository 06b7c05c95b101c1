package gormdb

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/pkg/errors"
)

// PermissionRepoImpl is the gorm-backed cross-tenant permission store.
type PermissionRepoImpl struct {
	db *gorm.DB
}

// NewPermissionRepository creates the store.
func NewPermissionRepository(db *gorm.DB) repository.PermissionRepository {
	return &PermissionRepoImpl{db: db}
}

// FindBySourceTenant returns every grant for the source tenant.
func (r *PermissionRepoImpl) FindBySourceTenant(ctx context.Context, sourceTenantID string) ([]*models.CrossTenantPermission, errors.AppError) {
	var grants []*models.CrossTenantPermission
	err := r.db.WithContext(ctx).
		Where("source_tenant_id = ?", sourceTenantID).
		Order("granted_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, errors.ErrLookupFailure("permission store", err)
	}
	return grants, nil
}

// Save persists a new grant. Grants are append-only.
func (r *PermissionRepoImpl) Save(ctx context.Context, permission *models.CrossTenantPermission) errors.AppError {
	if err := r.db.WithContext(ctx).Create(permission).Error; err != nil {
		return errors.ErrInternal("failed to save permission", err)
	}
	return nil
}

// Deactivate flips a grant inactive, keeping the record for audit.
func (r *PermissionRepoImpl) Deactivate(ctx context.Context, id uuid.UUID) errors.AppError {
	result := r.db.WithContext(ctx).
		Model(&models.CrossTenantPermission{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return errors.ErrInternal("failed to deactivate permission", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrNotFound("permission", id.String())
	}
	return nil
}
