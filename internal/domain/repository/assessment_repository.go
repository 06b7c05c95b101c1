package repository

import (
	"context"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/errors"
)

// AssessmentRepository persists multi-jurisdictional assessment snapshots.
// The store is append-only: snapshots are immutable history and are never
// updated or overwritten.
type AssessmentRepository interface {
	// SaveSnapshot appends one aggregation result.
	SaveSnapshot(ctx context.Context, snapshot *models.MultiJurisdictionalAssessment) errors.AppError

	// FindByOrganization returns snapshots for an organization, newest first.
	FindByOrganization(ctx context.Context, organizationID string, limit int) ([]*models.MultiJurisdictionalAssessment, errors.AppError)
}
