// Package dto defines the HTTP request and response shapes for the careplane
// API.
package dto

import "github.com/careplane/careplane/internal/domain/models"

// RunAssessmentRequest triggers one compliance aggregation run for an
// organization.
type RunAssessmentRequest struct {
	OrganizationName string            `json:"organization_name" binding:"required"`
	Locations        []models.Location `json:"locations" binding:"required"`
}

// AssistantQueryRequest is the conversational-assistant input after JSON
// binding. The raw serialized body is what the threat scanner sees; the
// bound form is what the sanitizer cleanses.
type AssistantQueryRequest struct {
	Message        string                 `json:"message" binding:"required"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	CareContext    map[string]interface{} `json:"care_context,omitempty"`
}

// GrantPermissionRequest creates a cross-tenant permission.
type GrantPermissionRequest struct {
	SourceTenantID string   `json:"source_tenant_id" binding:"required"`
	TargetTenantID string   `json:"target_tenant_id" binding:"required"`
	Resource       string   `json:"resource" binding:"required"`
	Actions        []string `json:"actions" binding:"required"`
	ExpiresAt      string   `json:"expires_at,omitempty"` // RFC3339, empty = no expiry
}
