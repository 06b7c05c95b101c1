package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

func newValidator(repo *fakePermissionRepo, geo *fakeGeoClassifier) *IsolationValidator {
	if geo == nil {
		geo = &fakeGeoClassifier{countries: map[string]string{}}
	}
	evaluator := NewCrossTenantPermissionEvaluator(repo, logger.NewNoopLogger())
	return NewIsolationValidator(evaluator, geo, logger.NewNoopLogger())
}

func ukTenant(tenantID string, isolation constants.IsolationLevel) *models.TenantContext {
	return models.NewTenantContext(tenantID, "healthcare-"+tenantID,
		constants.DataResidencyUKOnly, constants.JurisdictionEngland, "HIGH", isolation)
}

func TestValidate_CleanRequest(t *testing.T) {
	validator := newValidator(&fakePermissionRepo{},
		&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext: ukTenant("tenant-a", constants.IsolationLevelStrict),
		Resource:      "/api/v1/assistant/query",
		Action:        "create",
		OriginIP:      "81.2.69.142",
	})
	require.Nil(t, err)
	assert.True(t, decision.Valid)
	assert.Empty(t, decision.Violations)
	assert.Equal(t, []string{"tenants/tenant-a/*"}, decision.AllowedResourcePatterns)
}

func TestValidate_PrincipalTenantMismatchIsAlwaysFatal(t *testing.T) {
	for _, isolation := range []constants.IsolationLevel{
		constants.IsolationLevelStrict,
		constants.IsolationLevelModerate,
		constants.IsolationLevelRelaxed,
	} {
		validator := newValidator(&fakePermissionRepo{},
			&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})

		decision, err := validator.Validate(context.Background(), AccessRequest{
			Principal:     &models.Principal{TenantID: "tenant-b", UserID: "user-1"},
			TenantContext: ukTenant("tenant-a", isolation),
			OriginIP:      "81.2.69.142",
		})
		require.Nil(t, err)
		assert.Falsef(t, decision.Valid, "mismatch must be fatal under %s", isolation)
		assert.NotEmpty(t, decision.Violations)
	}
}

func TestValidate_StrictIsolationRejectsCrossTenantReferenceEvenWithGrant(t *testing.T) {
	repo := &fakePermissionRepo{grants: []*models.CrossTenantPermission{
		models.NewCrossTenantPermission("tenant-a", "tenant-b", "/api/v1/care-plans", []string{"read"}, "admin", nil),
	}}
	validator := newValidator(repo,
		&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:        &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext:    ukTenant("tenant-a", constants.IsolationLevelStrict),
		ResourceTenantID: "tenant-b",
		Resource:         "/api/v1/care-plans",
		Action:           "read",
		OriginIP:         "81.2.69.142",
	})
	require.Nil(t, err)
	assert.False(t, decision.Valid)
	// The grant was never consulted: strict isolation rejects outright.
	assert.Zero(t, repo.calls)
}

func TestValidate_ModerateIsolationHonorsGrant(t *testing.T) {
	repo := &fakePermissionRepo{grants: []*models.CrossTenantPermission{
		models.NewCrossTenantPermission("tenant-a", "tenant-b", "/api/v1/care-plans", []string{"read"}, "admin", nil),
	}}
	validator := newValidator(repo,
		&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})

	request := AccessRequest{
		Principal:        &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext:    ukTenant("tenant-a", constants.IsolationLevelModerate),
		ResourceTenantID: "tenant-b",
		Resource:         "/api/v1/care-plans",
		Action:           "read",
		OriginIP:         "81.2.69.142",
	}

	decision, err := validator.Validate(context.Background(), request)
	require.Nil(t, err)
	assert.True(t, decision.Valid)
	assert.Contains(t, decision.AllowedResourcePatterns, "tenants/tenant-b/api/v1/care-plans")
	assert.Contains(t, decision.AllowedResourcePatterns, "tenants/tenant-a/*")

	// Same request without a covering grant is a violation.
	request.Action = "delete"
	decision, err = validator.Validate(context.Background(), request)
	require.Nil(t, err)
	assert.False(t, decision.Valid)
}

func TestValidate_ResidencyUKOnly(t *testing.T) {
	geo := &fakeGeoClassifier{countries: map[string]string{
		"81.2.69.142":  "GB",
		"49.255.14.11": "JE",
		"2.2.2.2":      "FR",
		"127.0.0.1":    "LOCAL",
	}}
	validator := newValidator(&fakePermissionRepo{}, geo)

	tests := []struct {
		originIP string
		valid    bool
	}{
		{"81.2.69.142", true},
		{"49.255.14.11", true}, // crown dependency counts as UK
		{"127.0.0.1", true},
		{"2.2.2.2", false},
	}
	for _, tt := range tests {
		decision, err := validator.Validate(context.Background(), AccessRequest{
			Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
			TenantContext: ukTenant("tenant-a", constants.IsolationLevelStrict),
			OriginIP:      tt.originIP,
		})
		require.Nil(t, err)
		assert.Equalf(t, tt.valid, decision.Valid, "origin %s", tt.originIP)
	}
}

func TestValidate_ResidencyEUOnlyRejectsUKAndLocal(t *testing.T) {
	geo := &fakeGeoClassifier{countries: map[string]string{
		"2.2.2.2":     "FR",
		"81.2.69.142": "GB",
		"127.0.0.1":   "LOCAL",
	}}
	validator := newValidator(&fakePermissionRepo{}, geo)
	tenant := models.NewTenantContext("tenant-a", "tenant-a",
		constants.DataResidencyEUOnly, constants.JurisdictionEngland, "HIGH", constants.IsolationLevelModerate)

	for originIP, valid := range map[string]bool{
		"2.2.2.2":     true,
		"81.2.69.142": false,
		"127.0.0.1":   false,
	} {
		decision, err := validator.Validate(context.Background(), AccessRequest{
			Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
			TenantContext: tenant,
			OriginIP:      originIP,
		})
		require.Nil(t, err)
		assert.Equalf(t, valid, decision.Valid, "origin %s", originIP)
	}
}

func TestValidate_ResidencyGlobalSkipsGeoLookup(t *testing.T) {
	geo := &fakeGeoClassifier{err: assert.AnError}
	validator := newValidator(&fakePermissionRepo{}, geo)
	tenant := models.NewTenantContext("tenant-a", "tenant-a",
		constants.DataResidencyGlobal, constants.JurisdictionEngland, "HIGH", constants.IsolationLevelModerate)

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext: tenant,
		OriginIP:      "203.0.113.7",
	})
	require.Nil(t, err)
	assert.True(t, decision.Valid)
}

func TestValidate_GeoFailureFailsClosed(t *testing.T) {
	validator := newValidator(&fakePermissionRepo{}, &fakeGeoClassifier{err: assert.AnError})

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext: ukTenant("tenant-a", constants.IsolationLevelStrict),
		OriginIP:      "not-an-ip",
	})
	require.NotNil(t, err)
	assert.Nil(t, decision)
	assert.Equal(t, constants.ErrCodeLookupFailure, err.Code())
}

func TestValidate_InvalidJurisdiction(t *testing.T) {
	validator := newValidator(&fakePermissionRepo{},
		&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})
	tenant := models.NewTenantContext("tenant-a", "healthcare-a",
		constants.DataResidencyUKOnly, "atlantis", "HIGH", constants.IsolationLevelStrict)

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:     &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext: tenant,
		OriginIP:      "81.2.69.142",
	})
	require.Nil(t, err)
	assert.False(t, decision.Valid)
}

func TestValidate_ItemizesEveryViolation(t *testing.T) {
	geo := &fakeGeoClassifier{countries: map[string]string{"2.2.2.2": "FR"}}
	validator := newValidator(&fakePermissionRepo{}, geo)
	tenant := models.NewTenantContext("tenant-a", "healthcare-a",
		constants.DataResidencyUKOnly, "atlantis", "HIGH", constants.IsolationLevelStrict)

	// Mismatched principal, cross-tenant reference under strict isolation,
	// residency breach and bad jurisdiction all at once.
	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:        &models.Principal{TenantID: "tenant-b", UserID: "user-1"},
		TenantContext:    tenant,
		ResourceTenantID: "tenant-c",
		Resource:         "/api/v1/care-plans",
		Action:           "read",
		OriginIP:         "2.2.2.2",
	})
	require.Nil(t, err)
	assert.False(t, decision.Valid)
	assert.Len(t, decision.Violations, 4)
}

func TestValidate_PermissionStoreFailureFailsClosed(t *testing.T) {
	repo := &fakePermissionRepo{failure: errors.ErrLookupFailure("permission store", nil)}
	validator := newValidator(repo,
		&fakeGeoClassifier{countries: map[string]string{"81.2.69.142": "GB"}})

	decision, err := validator.Validate(context.Background(), AccessRequest{
		Principal:        &models.Principal{TenantID: "tenant-a", UserID: "user-1"},
		TenantContext:    ukTenant("tenant-a", constants.IsolationLevelModerate),
		ResourceTenantID: "tenant-b",
		Resource:         "/api/v1/care-plans",
		Action:           "read",
		OriginIP:         "81.2.69.142",
	})
	require.NotNil(t, err)
	assert.Nil(t, decision)
}
