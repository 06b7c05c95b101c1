package dto

import (
	"time"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
)

// AssessmentResponse is the wire shape of one aggregation run.
type AssessmentResponse struct {
	ID                        string                                                    `json:"id"`
	OrganizationID            string                                                    `json:"organization_id"`
	AssessmentDate            time.Time                                                 `json:"assessment_date"`
	Jurisdictions             map[constants.Jurisdiction]*models.JurisdictionAssessment `json:"jurisdictions"`
	CrossJurisdictionalRisks  []string                                                  `json:"cross_jurisdictional_risks"`
	HarmonizedRecommendations []string                                                  `json:"harmonized_recommendations"`
	OverallComplianceScore    float64                                                   `json:"overall_compliance_score"`
}

// FromAssessment converts a snapshot to its wire shape.
func FromAssessment(a *models.MultiJurisdictionalAssessment) *AssessmentResponse {
	return &AssessmentResponse{
		ID:                        a.ID.String(),
		OrganizationID:            a.OrganizationID,
		AssessmentDate:            a.AssessmentDate,
		Jurisdictions:             a.Jurisdictions,
		CrossJurisdictionalRisks:  a.CrossJurisdictionalRisks,
		HarmonizedRecommendations: a.HarmonizedRecommendations,
		OverallComplianceScore:    a.OverallComplianceScore,
	}
}

// PartialAssessmentResponse reports a failed aggregation: which jurisdictions
// succeeded, explicitly labeled partial, with no unified score.
type PartialAssessmentResponse struct {
	Partial                bool                                                      `json:"partial"`
	SucceededJurisdictions map[constants.Jurisdiction]*models.JurisdictionAssessment `json:"succeeded_jurisdictions,omitempty"`
	FailedJurisdictions    []string                                                  `json:"failed_jurisdictions"`
}

// AssistantQueryResponse acknowledges a screened assistant query. The
// sanitized payload is what downstream processing receives; findings are the
// non-blocking violations recorded on the request.
type AssistantQueryResponse struct {
	TenantID         string                     `json:"tenant_id"`
	ConversationID   string                     `json:"conversation_id,omitempty"`
	SanitizedMessage string                     `json:"sanitized_message"`
	CareContext      map[string]interface{}     `json:"care_context,omitempty"`
	DroppedFields    []string                   `json:"dropped_fields,omitempty"`
	Findings         []models.SecurityViolation `json:"findings,omitempty"`
}

// PermissionResponse is the wire shape of a cross-tenant grant.
type PermissionResponse struct {
	ID             string     `json:"id"`
	SourceTenantID string     `json:"source_tenant_id"`
	TargetTenantID string     `json:"target_tenant_id"`
	Resource       string     `json:"resource"`
	Actions        []string   `json:"actions"`
	IsActive       bool       `json:"is_active"`
	GrantedAt      time.Time  `json:"granted_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// FromPermission converts a grant to its wire shape.
func FromPermission(p *models.CrossTenantPermission) *PermissionResponse {
	return &PermissionResponse{
		ID:             p.ID.String(),
		SourceTenantID: p.SourceTenantID,
		TargetTenantID: p.TargetTenantID,
		Resource:       p.Resource,
		Actions:        p.Actions,
		IsActive:       p.IsActive,
		GrantedAt:      p.GrantedAt,
		ExpiresAt:      p.ExpiresAt,
	}
}
