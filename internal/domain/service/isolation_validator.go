package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// euCountries is the set of EU member state codes accepted for EU_ONLY
// residency.
var euCountries = map[string]bool{
	"AT": true, "BE": true, "BG": true, "HR": true, "CY": true, "CZ": true,
	"DK": true, "EE": true, "FI": true, "FR": true, "DE": true, "GR": true,
	"HU": true, "IE": true, "IT": true, "LV": true, "LT": true, "LU": true,
	"MT": true, "NL": true, "PL": true, "PT": true, "RO": true, "SK": true,
	"SI": true, "ES": true, "SE": true,
}

// ukCountries is the set of codes accepted as UK origins, including the
// crown dependencies.
var ukCountries = map[string]bool{
	"GB": true, "UK": true, "JE": true, "GG": true, "IM": true,
}

// AccessRequest is everything the isolation validator needs about one
// request.
type AccessRequest struct {
	Principal        *models.Principal
	TenantContext    *models.TenantContext
	ResourceTenantID string
	Resource         string
	Action           string
	OriginIP         string
}

// IsolationValidator composes principal identity, resolved tenant context,
// the extracted resource-tenant reference and permission evaluation into a
// single allow/deny decision with itemized violations. It is synchronous and
// side-effect free beyond audit events emitted by its caller.
type IsolationValidator struct {
	permissions *CrossTenantPermissionEvaluator
	geo         GeoClassifier
	logger      logger.Logger
}

// NewIsolationValidator creates a validator. Both collaborators are explicit
// constructor dependencies so tests run against fakes.
func NewIsolationValidator(permissions *CrossTenantPermissionEvaluator, geo GeoClassifier, log logger.Logger) *IsolationValidator {
	return &IsolationValidator{
		permissions: permissions,
		geo:         geo,
		logger:      log.WithComponent("isolation_validator"),
	}
}

// Validate runs the four isolation checks in order and returns the decision
// with every violation found, not just the first. A collaborator failure
// during evaluation fails closed.
func (v *IsolationValidator) Validate(ctx context.Context, req AccessRequest) (*models.IsolationDecision, errors.AppError) {
	decision := &models.IsolationDecision{Valid: true}

	// Principal must belong to the resolved tenant. Fatal in every isolation
	// mode.
	if req.Principal.TenantID != req.TenantContext.TenantID {
		decision.AddViolation(fmt.Sprintf(
			"principal tenant %s does not match request tenant context %s",
			req.Principal.TenantID, req.TenantContext.TenantID))
	}

	if err := v.checkResourceTenant(ctx, req, decision); err != nil {
		return nil, err
	}
	if err := v.checkResidency(ctx, req, decision); err != nil {
		return nil, err
	}

	if !constants.IsValidJurisdiction(req.TenantContext.Jurisdiction) {
		decision.AddViolation(fmt.Sprintf(
			"tenant jurisdiction %q is not an accepted jurisdiction",
			req.TenantContext.Jurisdiction))
	}

	if decision.Valid {
		// Grant-approved cross-tenant patterns were already collected; the
		// tenant's own namespace is always covered.
		decision.AllowedResourcePatterns = append(decision.AllowedResourcePatterns,
			fmt.Sprintf("tenants/%s/*", req.TenantContext.TenantID))
	}
	return decision, nil
}

// checkResourceTenant enforces the resource-tenant reference rules: under
// strict isolation any cross-tenant reference is a violation; otherwise the
// reference is allowed only when an active unexpired grant covers it.
func (v *IsolationValidator) checkResourceTenant(ctx context.Context, req AccessRequest, decision *models.IsolationDecision) errors.AppError {
	if req.ResourceTenantID == "" || req.ResourceTenantID == req.TenantContext.TenantID {
		return nil
	}

	if req.TenantContext.IsStrict() {
		decision.AddViolation(fmt.Sprintf(
			"request references resource of tenant %s under strict isolation",
			req.ResourceTenantID))
		return nil
	}

	allowed, err := v.permissions.IsAllowed(ctx, req.Principal.TenantID, req.ResourceTenantID, req.Resource, req.Action)
	if err != nil {
		return err
	}
	if !allowed {
		decision.AddViolation(fmt.Sprintf(
			"no cross-tenant permission covers %s on resource %s of tenant %s",
			req.Action, req.Resource, req.ResourceTenantID))
		return nil
	}

	v.logger.Warn(ctx, "cross-tenant access permitted by explicit grant",
		logger.String("source_tenant", req.Principal.TenantID),
		logger.String("target_tenant", req.ResourceTenantID),
		logger.String("resource", req.Resource),
	)
	decision.AllowedResourcePatterns = append(decision.AllowedResourcePatterns,
		fmt.Sprintf("tenants/%s/%s", req.ResourceTenantID, strings.TrimPrefix(req.Resource, "/")))
	return nil
}

// checkResidency classifies the request origin and verifies compatibility
// with the tenant's data-residency constraint. An unclassifiable origin fails
// closed for every constraint except GLOBAL.
func (v *IsolationValidator) checkResidency(ctx context.Context, req AccessRequest, decision *models.IsolationDecision) errors.AppError {
	if req.TenantContext.DataResidency == constants.DataResidencyGlobal {
		return nil
	}

	country, err := v.geo.Classify(ctx, req.OriginIP)
	if err != nil {
		return errors.ErrLookupFailure("geo classifier", err)
	}

	compatible := false
	switch req.TenantContext.DataResidency {
	case constants.DataResidencyUKOnly:
		compatible = country == "LOCAL" || ukCountries[country]
	case constants.DataResidencyEUOnly:
		compatible = euCountries[country]
	case constants.DataResidencyUKEU:
		compatible = country == "LOCAL" || ukCountries[country] || euCountries[country]
	}

	if !compatible {
		decision.AddViolation(fmt.Sprintf(
			"request origin %s violates data residency %s",
			country, req.TenantContext.DataResidency))
	}
	return nil
}
