// Package models defines the domain models for the careplane trust-boundary
// service.
package models

import (
	"time"

	"github.com/careplane/careplane/pkg/constants"
)

// TenantContext is the resolved identity and policy envelope of a tenant for
// the duration of one request. It is immutable after construction: any change
// in the underlying tenant metadata produces a new context replacing the
// cached one, never an in-place edit, so concurrent readers never observe a
// torn value.
type TenantContext struct {
	TenantID        string                   `json:"tenant_id"`
	TenantCode      string                   `json:"tenant_code"`
	DataResidency   constants.DataResidency  `json:"data_residency"`
	Jurisdiction    constants.Jurisdiction   `json:"jurisdiction"`
	ComplianceLevel string                   `json:"compliance_level"`
	IsolationLevel  constants.IsolationLevel `json:"isolation_level"`
	ResolvedAt      time.Time                `json:"resolved_at"`
}

// NewTenantContext builds a context applying the healthcare-class defaults:
// tenant codes carrying the healthcare prefix fall back to UK-only residency
// under strict isolation when the directory record left those fields empty.
func NewTenantContext(tenantID, tenantCode string, residency constants.DataResidency,
	jurisdiction constants.Jurisdiction, complianceLevel string, isolation constants.IsolationLevel) *TenantContext {

	if isHealthcareCode(tenantCode) {
		if residency == "" {
			residency = constants.DataResidencyUKOnly
		}
		if isolation == "" {
			isolation = constants.IsolationLevelStrict
		}
	}
	if residency == "" {
		residency = constants.DataResidencyGlobal
	}
	if isolation == "" {
		isolation = constants.IsolationLevelModerate
	}

	return &TenantContext{
		TenantID:        tenantID,
		TenantCode:      tenantCode,
		DataResidency:   residency,
		Jurisdiction:    jurisdiction,
		ComplianceLevel: complianceLevel,
		IsolationLevel:  isolation,
		ResolvedAt:      time.Now().UTC(),
	}
}

func isHealthcareCode(code string) bool {
	return len(code) >= len(constants.HealthcareTenantPrefix) &&
		code[:len(constants.HealthcareTenantPrefix)] == constants.HealthcareTenantPrefix
}

// IsStrict reports whether the tenant runs under strict isolation, where any
// cross-tenant resource reference is a violation regardless of permissions.
func (t *TenantContext) IsStrict() bool {
	return t.IsolationLevel == constants.IsolationLevelStrict
}

// Clone returns a copy. Cached contexts are handed out cloned so a caller can
// never mutate the cached value.
func (t *TenantContext) Clone() *TenantContext {
	clone := *t
	return &clone
}
