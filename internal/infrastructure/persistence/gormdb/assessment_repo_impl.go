package gormdb

import (
	"context"

	"gorm.io/gorm"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/pkg/errors"
)

// AssessmentRepoImpl is the gorm-backed, append-only snapshot store. It
// exposes no update or delete path: snapshots are immutable history.
type AssessmentRepoImpl struct {
	db *gorm.DB
}

// NewAssessmentRepository creates the store.
func NewAssessmentRepository(db *gorm.DB) repository.AssessmentRepository {
	return &AssessmentRepoImpl{db: db}
}

// SaveSnapshot appends one aggregation result.
func (r *AssessmentRepoImpl) SaveSnapshot(ctx context.Context, snapshot *models.MultiJurisdictionalAssessment) errors.AppError {
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return errors.ErrInternal("failed to persist assessment snapshot", err)
	}
	return nil
}

// FindByOrganization returns snapshots for an organization, newest first.
func (r *AssessmentRepoImpl) FindByOrganization(ctx context.Context, organizationID string, limit int) ([]*models.MultiJurisdictionalAssessment, errors.AppError) {
	if limit <= 0 {
		limit = 50
	}
	var snapshots []*models.MultiJurisdictionalAssessment
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("assessment_date DESC").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, errors.ErrLookupFailure("assessment store", err)
	}
	return snapshots, nil
}
