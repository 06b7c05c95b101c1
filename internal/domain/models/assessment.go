package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/careplane/careplane/pkg/constants"
)

// JurisdictionAssessment is the compliance view of one organization in one
// regulatory jurisdiction. Owned by the per-jurisdiction assessment provider;
// the aggregator only reads it.
type JurisdictionAssessment struct {
	Jurisdiction    constants.Jurisdiction `json:"jurisdiction"`
	RegulatoryBody  string                 `json:"regulatory_body"`
	OverallScore    float64                `json:"overall_score"`
	DomainScores    map[string]float64     `json:"domain_scores"`
	Gaps            []string               `json:"gaps,omitempty"`
	Recommendations []string               `json:"recommendations,omitempty"`
	LastInspection  *time.Time             `json:"last_inspection,omitempty"`
	NextInspection  *time.Time             `json:"next_inspection,omitempty"`
}

// MultiJurisdictionalAssessment is one aggregation run over every
// jurisdiction the organization operates in. Persisted as an append-only
// historical snapshot, never overwritten.
type MultiJurisdictionalAssessment struct {
	ID                        uuid.UUID                                          `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID            string                                             `json:"organization_id" gorm:"index;not null"`
	AssessmentDate            time.Time                                          `json:"assessment_date"`
	Jurisdictions             map[constants.Jurisdiction]*JurisdictionAssessment `json:"jurisdictions" gorm:"type:text;serializer:json"`
	CrossJurisdictionalRisks  []string                                           `json:"cross_jurisdictional_risks" gorm:"type:text;serializer:json"`
	HarmonizedRecommendations []string                                           `json:"harmonized_recommendations" gorm:"type:text;serializer:json"`
	OverallComplianceScore    float64                                            `json:"overall_compliance_score"`
}

// TableName sets the storage table for gorm.
func (MultiJurisdictionalAssessment) TableName() string { return "compliance_snapshots" }

// NewMultiJurisdictionalAssessment creates a snapshot for one aggregation run.
func NewMultiJurisdictionalAssessment(organizationID string) *MultiJurisdictionalAssessment {
	return &MultiJurisdictionalAssessment{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		AssessmentDate: time.Now().UTC(),
		Jurisdictions:  make(map[constants.Jurisdiction]*JurisdictionAssessment),
	}
}
