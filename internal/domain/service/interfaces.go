// Package service contains the domain services enforcing the tenant trust
// boundary: context resolution, isolation validation, permission evaluation,
// jurisdiction classification and adversarial-input screening.
package service

import (
	"context"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
)

// AssessmentProvider is the per-jurisdiction compliance collaborator. One
// provider exists per regulatory jurisdiction and carries a bounded-latency
// contract; the aggregator wraps every call in an independent timeout.
type AssessmentProvider interface {
	// Jurisdiction returns the jurisdiction this provider assesses.
	Jurisdiction() constants.Jurisdiction

	// Assess produces the compliance view of an organization in this
	// provider's jurisdiction.
	Assess(ctx context.Context, organizationID string) (*models.JurisdictionAssessment, error)
}

// GeoClassifier resolves a request origin to an ISO country code for
// data-residency checks. Local and private origins classify as "LOCAL".
type GeoClassifier interface {
	Classify(ctx context.Context, originIP string) (string, error)
}

// TenantContextCache is the process-wide, TTL-bounded, read-through cache in
// front of the tenant directory. Readers never block writers; entries simply
// expire.
type TenantContextCache interface {
	Get(key string) (*models.TenantContext, bool)
	Set(key string, tenantCtx *models.TenantContext)
	// Invalidate drops an entry ahead of its TTL, for tenant-metadata updates.
	Invalidate(key string)
}

// AuditService publishes security audit events. Recording must never block
// the request path on broker latency beyond the context deadline.
type AuditService interface {
	Record(ctx context.Context, event *models.AuditEvent) error
	Close() error
}

// RateLimiter bounds assistant traffic per tenant.
type RateLimiter interface {
	// Allow reports whether one more request fits the window for the key,
	// with the remaining budget.
	Allow(ctx context.Context, key string) (allowed bool, remaining int64, err error)
}
