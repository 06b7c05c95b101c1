package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careplane/careplane/internal/application/dto"
	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// PermissionAdminService manages explicit cross-tenant grants. Every grant
// and revocation is written to the audit trail; a grant that cannot be
// audited still stands, the audit failure is surfaced in the logs.
type PermissionAdminService struct {
	permissions repository.PermissionRepository
	audit       domainservice.AuditService
	logger      logger.Logger
}

// NewPermissionAdminService creates the admin service.
func NewPermissionAdminService(permissions repository.PermissionRepository,
	audit domainservice.AuditService, log logger.Logger) *PermissionAdminService {
	return &PermissionAdminService{
		permissions: permissions,
		audit:       audit,
		logger:      log.WithComponent("permission_admin"),
	}
}

// Grant creates a new cross-tenant permission from the request.
func (s *PermissionAdminService) Grant(ctx context.Context, principal *models.Principal,
	requestID string, req *dto.GrantPermissionRequest) (*models.CrossTenantPermission, errors.AppError) {

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, errors.ErrInvalidRequest("expires_at must be RFC3339").WithCause(err)
		}
		if parsed.Before(time.Now().UTC()) {
			return nil, errors.ErrInvalidRequest("expires_at is already in the past")
		}
		utc := parsed.UTC()
		expiresAt = &utc
	}

	permission := models.NewCrossTenantPermission(req.SourceTenantID, req.TargetTenantID,
		req.Resource, req.Actions, principal.UserID, expiresAt)
	if err := s.permissions.Save(ctx, permission); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, constants.AuditEventPermissionGranted, principal, requestID, permission)
	s.logger.Info(ctx, "cross-tenant permission granted",
		logger.String("permission_id", permission.ID.String()),
		logger.String("source_tenant_id", permission.SourceTenantID),
		logger.String("target_tenant_id", permission.TargetTenantID),
		logger.String("resource", permission.Resource),
	)
	return permission, nil
}

// List returns every grant, active or not, for the source tenant.
func (s *PermissionAdminService) List(ctx context.Context, sourceTenantID string) ([]*models.CrossTenantPermission, errors.AppError) {
	return s.permissions.FindBySourceTenant(ctx, sourceTenantID)
}

// Revoke deactivates a grant. The record is kept for the audit history.
func (s *PermissionAdminService) Revoke(ctx context.Context, principal *models.Principal,
	requestID string, id uuid.UUID) errors.AppError {

	if err := s.permissions.Deactivate(ctx, id); err != nil {
		return err
	}

	event := models.NewAuditEvent(constants.AuditEventPermissionRevoked,
		principal.TenantID, principal.UserID, requestID).
		WithDetail("permission_id", id.String())
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error(ctx, "failed to audit permission revocation", err)
	}

	s.logger.Info(ctx, "cross-tenant permission revoked",
		logger.String("permission_id", id.String()))
	return nil
}

func (s *PermissionAdminService) recordAudit(ctx context.Context, eventType constants.AuditEventType,
	principal *models.Principal, requestID string, permission *models.CrossTenantPermission) {

	event := models.NewAuditEvent(eventType, principal.TenantID, principal.UserID, requestID).
		WithDetail("permission_id", permission.ID.String()).
		WithDetail("source_tenant_id", permission.SourceTenantID).
		WithDetail("target_tenant_id", permission.TargetTenantID).
		WithDetail("resource", permission.Resource).
		WithDetail("actions", []string(permission.Actions))
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Error(ctx, "failed to audit permission grant", err)
	}
}
