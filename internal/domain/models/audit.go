package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/careplane/careplane/pkg/constants"
)

// AuditEvent is one security-relevant occurrence published to the audit
// pipeline. Events are HMAC-signed before leaving the process so downstream
// consumers can detect tampering.
type AuditEvent struct {
	EventID    uuid.UUID                `json:"event_id"`
	EventType  constants.AuditEventType `json:"event_type"`
	TenantID   string                   `json:"tenant_id,omitempty"`
	UserID     string                   `json:"user_id,omitempty"`
	RequestID  string                   `json:"request_id,omitempty"`
	OccurredAt time.Time                `json:"occurred_at"`
	Details    map[string]interface{}   `json:"details,omitempty"`
	Violations []SecurityViolation      `json:"violations,omitempty"`
	Signature  string                   `json:"signature,omitempty"`
}

// NewAuditEvent creates an event stamped now.
func NewAuditEvent(eventType constants.AuditEventType, tenantID, userID, requestID string) *AuditEvent {
	return &AuditEvent{
		EventID:    uuid.New(),
		EventType:  eventType,
		TenantID:   tenantID,
		UserID:     userID,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
		Details:    make(map[string]interface{}),
	}
}

// WithDetail attaches a key-value detail and returns the event for chaining.
func (e *AuditEvent) WithDetail(key string, value interface{}) *AuditEvent {
	e.Details[key] = value
	return e
}

// WithViolations attaches the security violations backing the event.
func (e *AuditEvent) WithViolations(violations []SecurityViolation) *AuditEvent {
	e.Violations = violations
	return e
}
