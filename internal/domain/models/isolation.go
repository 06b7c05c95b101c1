package models

import (
	"time"

	"github.com/careplane/careplane/pkg/constants"
)

// IsolationDecision is the ephemeral outcome of validating one request
// against the tenant boundary. Any violation denies the request with the full
// itemized list; the itemization is an audit requirement, not a convenience.
type IsolationDecision struct {
	Valid                   bool     `json:"valid"`
	Violations              []string `json:"violations,omitempty"`
	AllowedResourcePatterns []string `json:"allowed_resource_patterns,omitempty"`
}

// AddViolation records a violation and marks the decision invalid.
func (d *IsolationDecision) AddViolation(violation string) {
	d.Valid = false
	d.Violations = append(d.Violations, violation)
}

// SecurityViolation is one detected adversarial finding, attached to the
// request's audit record.
type SecurityViolation struct {
	Type       constants.ViolationType `json:"type"`
	Severity   constants.Severity      `json:"severity"`
	Evidence   string                  `json:"evidence"`
	Blocked    bool                    `json:"blocked"`
	DetectedAt time.Time               `json:"detected_at"`
}

// NewSecurityViolation creates a violation record stamped now.
func NewSecurityViolation(vType constants.ViolationType, severity constants.Severity,
	evidence string, blocked bool) SecurityViolation {

	return SecurityViolation{
		Type:       vType,
		Severity:   severity,
		Evidence:   evidence,
		Blocked:    blocked,
		DetectedAt: time.Now().UTC(),
	}
}

// ScanResult is the read-only outcome of scanning one request body.
type ScanResult struct {
	Violations []SecurityViolation `json:"violations,omitempty"`
	Blocked    bool                `json:"blocked"`
}

// BlockedTypes returns the violation types that caused a block, for the
// denial response. Never includes evidence content.
func (r *ScanResult) BlockedTypes() []string {
	var types []string
	for _, v := range r.Violations {
		if v.Blocked {
			types = append(types, string(v.Type))
		}
	}
	return types
}
