package service

import (
	"context"
	"time"

	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// CrossTenantPermissionEvaluator decides whether an access crossing tenant
// boundaries is explicitly and currently permitted. Same-tenant access is
// always permitted without a store lookup.
type CrossTenantPermissionEvaluator struct {
	permissions repository.PermissionRepository
	logger      logger.Logger
	now         func() time.Time
}

// NewCrossTenantPermissionEvaluator creates an evaluator over the given
// permission store.
func NewCrossTenantPermissionEvaluator(permissions repository.PermissionRepository, log logger.Logger) *CrossTenantPermissionEvaluator {
	return &CrossTenantPermissionEvaluator{
		permissions: permissions,
		logger:      log.WithComponent("permission_evaluator"),
		now:         time.Now,
	}
}

// WithClock overrides the evaluator clock for tests.
func (e *CrossTenantPermissionEvaluator) WithClock(now func() time.Time) *CrossTenantPermissionEvaluator {
	e.now = now
	return e
}

// IsAllowed reports whether a principal of sourceTenantID may perform action
// on resource belonging to targetTenantID. Only active, unexpired grants
// count; resource matching is exact string equality, and a wildcard target
// covers any tenant.
func (e *CrossTenantPermissionEvaluator) IsAllowed(ctx context.Context, sourceTenantID, targetTenantID, resource, action string) (bool, errors.AppError) {
	if sourceTenantID == targetTenantID {
		return true, nil
	}

	grants, err := e.permissions.FindBySourceTenant(ctx, sourceTenantID)
	if err != nil {
		return false, err
	}

	now := e.now().UTC()
	for _, grant := range grants {
		if grant.Covers(targetTenantID, resource, action, now) {
			e.logger.Info(ctx, "cross-tenant access permitted by grant",
				logger.String("source_tenant", sourceTenantID),
				logger.String("target_tenant", targetTenantID),
				logger.String("resource", resource),
				logger.String("action", action),
				logger.String("grant_id", grant.ID.String()),
			)
			return true, nil
		}
	}
	return false, nil
}
