package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/careplane/careplane/pkg/constants"
)

// CrossTenantPermission is an explicit, time-bounded grant allowing one
// tenant's principals to act on another tenant's resource. Records are never
// mutated in place: a re-grant creates a new record and revocation only flips
// IsActive on the stored row.
type CrossTenantPermission struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SourceTenantID string     `json:"source_tenant_id" gorm:"index;not null"`
	TargetTenantID string     `json:"target_tenant_id" gorm:"not null"`
	Resource       string     `json:"resource" gorm:"not null"`
	Actions        ActionSet  `json:"actions" gorm:"type:text;serializer:json"`
	IsActive       bool       `json:"is_active" gorm:"not null;default:true"`
	GrantedAt      time.Time  `json:"granted_at"`
	GrantedBy      string     `json:"granted_by"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ActionSet is the set of actions a grant covers.
type ActionSet []string

// Contains reports whether the set covers the given action.
func (s ActionSet) Contains(action string) bool {
	for _, a := range s {
		if a == action {
			return true
		}
	}
	return false
}

// NewCrossTenantPermission creates a grant effective immediately.
func NewCrossTenantPermission(sourceTenantID, targetTenantID, resource string,
	actions []string, grantedBy string, expiresAt *time.Time) *CrossTenantPermission {

	return &CrossTenantPermission{
		ID:             uuid.New(),
		SourceTenantID: sourceTenantID,
		TargetTenantID: targetTenantID,
		Resource:       resource,
		Actions:        actions,
		IsActive:       true,
		GrantedAt:      time.Now().UTC(),
		GrantedBy:      grantedBy,
		ExpiresAt:      expiresAt,
	}
}

// IsExpired reports whether the grant has lapsed at the given instant.
func (p *CrossTenantPermission) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Covers reports whether this grant permits the requested access. Resource
// matching is exact string equality only; no prefix or pattern matching, to
// avoid over-broad grants.
func (p *CrossTenantPermission) Covers(targetTenantID, resource, action string, now time.Time) bool {
	if !p.IsActive || p.IsExpired(now) {
		return false
	}
	if p.TargetTenantID != constants.WildcardTenant && p.TargetTenantID != targetTenantID {
		return false
	}
	return p.Resource == resource && p.Actions.Contains(action)
}

// TableName sets the storage table for gorm.
func (CrossTenantPermission) TableName() string { return "cross_tenant_permissions" }
