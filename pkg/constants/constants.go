// Package constants defines shared enumerations, context keys and default
// bounds for the careplane trust-boundary service.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is the canonical service name used in logs, traces and metrics.
	ServiceName = "careplane"

	// EnvPrefix is the prefix for environment variable configuration overrides.
	EnvPrefix = "CAREPLANE"
)

// ================================================================================
// Jurisdictions
// ================================================================================

// Jurisdiction identifies a regulatory territory with its own compliance
// assessment provider.
type Jurisdiction string

const (
	JurisdictionEngland         Jurisdiction = "england"
	JurisdictionScotland        Jurisdiction = "scotland"
	JurisdictionWales           Jurisdiction = "wales"
	JurisdictionNorthernIreland Jurisdiction = "northern_ireland"
	JurisdictionJersey          Jurisdiction = "jersey"
	JurisdictionGuernsey        Jurisdiction = "guernsey"
	JurisdictionIsleOfMan       Jurisdiction = "isle_of_man"
)

// AllJurisdictions is the fixed accepted set used by the isolation validator.
var AllJurisdictions = []Jurisdiction{
	JurisdictionEngland,
	JurisdictionScotland,
	JurisdictionWales,
	JurisdictionNorthernIreland,
	JurisdictionJersey,
	JurisdictionGuernsey,
	JurisdictionIsleOfMan,
}

// IsValidJurisdiction reports whether j is a member of the accepted set.
func IsValidJurisdiction(j Jurisdiction) bool {
	for _, known := range AllJurisdictions {
		if j == known {
			return true
		}
	}
	return false
}

// RegulatoryBody returns the regulator responsible for a jurisdiction.
func (j Jurisdiction) RegulatoryBody() string {
	switch j {
	case JurisdictionEngland:
		return "CQC"
	case JurisdictionScotland:
		return "Care Inspectorate"
	case JurisdictionWales:
		return "CIW"
	case JurisdictionNorthernIreland:
		return "RQIA"
	case JurisdictionJersey:
		return "Jersey Care Commission"
	case JurisdictionGuernsey:
		return "Committee for Health & Social Care"
	case JurisdictionIsleOfMan:
		return "Registration and Inspection Unit"
	default:
		return ""
	}
}

// ================================================================================
// Tenant Isolation
// ================================================================================

// DataResidency is the geographic constraint on where a tenant's requests may
// originate.
type DataResidency string

const (
	DataResidencyUKOnly DataResidency = "UK_ONLY"
	DataResidencyEUOnly DataResidency = "EU_ONLY"
	DataResidencyUKEU   DataResidency = "UK_EU"
	DataResidencyGlobal DataResidency = "GLOBAL"
)

// IsolationLevel is the per-tenant strictness setting controlling how
// cross-tenant references are handled.
type IsolationLevel string

const (
	IsolationLevelStrict   IsolationLevel = "STRICT"
	IsolationLevelModerate IsolationLevel = "MODERATE"
	IsolationLevelRelaxed  IsolationLevel = "RELAXED"
)

// WildcardTenant is the target tenant value on a cross-tenant permission that
// grants access to any tenant for the covered resource and action.
const WildcardTenant = "*"

// ================================================================================
// Security Violations
// ================================================================================

// ViolationType classifies a detected security violation.
type ViolationType string

const (
	ViolationPromptInjection   ViolationType = "PROMPT_INJECTION"
	ViolationDataExtraction    ViolationType = "DATA_EXTRACTION"
	ViolationCrossTenant       ViolationType = "CROSS_TENANT_ATTEMPT"
	ViolationMaliciousContent  ViolationType = "MALICIOUS_CONTENT"
	ViolationRateLimitExceeded ViolationType = "RATE_LIMIT_EXCEEDED"
)

// Severity grades a security violation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is a typed key for request-scoped context values.
type ContextKey string

const (
	ContextKeyRequestID     ContextKey = "request_id"
	ContextKeyTenantID      ContextKey = "tenant_id"
	ContextKeyUserID        ContextKey = "user_id"
	ContextKeyTenantContext ContextKey = "tenant_context"
	ContextKeyPrincipal     ContextKey = "principal"
	ContextKeyIsolation     ContextKey = "isolation_decision"
	ContextKeyViolations    ContextKey = "security_violations"
	ContextKeyTraceID       ContextKey = "trace_id"
)

// ================================================================================
// HTTP Headers
// ================================================================================

const (
	HeaderRequestID        = "X-Request-ID"
	HeaderTenantID         = "X-Tenant-ID"
	HeaderIsolationChecked = "X-Isolation-Checked"
)

// ================================================================================
// Audit Events
// ================================================================================

// AuditEventType identifies the kind of security audit event.
type AuditEventType string

const (
	AuditEventIsolationDenied     AuditEventType = "isolation.denied"
	AuditEventIsolationAllowed    AuditEventType = "isolation.allowed"
	AuditEventThreatDetected      AuditEventType = "threat.detected"
	AuditEventStructuralViolation AuditEventType = "threat.structural"
	AuditEventFieldDropped        AuditEventType = "sanitizer.field_dropped"
	AuditEventPermissionGranted   AuditEventType = "permission.granted"
	AuditEventPermissionRevoked   AuditEventType = "permission.revoked"
	AuditEventRateLimitExceeded   AuditEventType = "rate_limit.exceeded"
)

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode is the machine-readable code attached to service errors.
type ErrorCode string

const (
	ErrCodeResolutionFailure  ErrorCode = "resolution_failure"
	ErrCodeLookupFailure      ErrorCode = "lookup_failure"
	ErrCodeIsolationViolation ErrorCode = "isolation_violation"
	ErrCodeThreatDetected     ErrorCode = "threat_detected"
	ErrCodeStructural         ErrorCode = "structural_violation"
	ErrCodeAggregationPartial ErrorCode = "aggregation_partial_failure"
	ErrCodeUnauthenticated    ErrorCode = "unauthenticated"
	ErrCodeRateLimited        ErrorCode = "rate_limit_exceeded"
	ErrCodeInvalidRequest     ErrorCode = "invalid_request"
	ErrCodeNotFound           ErrorCode = "not_found"
	ErrCodeInternal           ErrorCode = "internal_error"
)

// ================================================================================
// Log Levels
// ================================================================================

// LogLevel controls logger verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// ================================================================================
// Default Bounds
// ================================================================================

const (
	// DefaultTenantCacheTTL bounds how long a resolved tenant context may be
	// served from the read-through cache.
	DefaultTenantCacheTTL = 1 * time.Hour

	// MaxSerializedBodyBytes is the structural limit on assistant request
	// bodies. Bodies above it are flagged MEDIUM severity.
	MaxSerializedBodyBytes = 50000

	// MaxBodyNestingDepth is the structural limit on assistant request body
	// nesting.
	MaxBodyNestingDepth = 10

	// DefaultAssessmentTimeout bounds each per-jurisdiction provider call.
	DefaultAssessmentTimeout = 10 * time.Second

	// DefaultAssessmentRetryBackoff is the pause before the single retry of a
	// transiently failed provider call.
	DefaultAssessmentRetryBackoff = 250 * time.Millisecond

	// DefaultFreeTextLimit is the maximum length of a sanitized free-text
	// field before truncation.
	DefaultFreeTextLimit = 10000

	// TruncationMarker is appended to any truncated free-text value.
	TruncationMarker = "...[truncated]"

	// HealthcareTenantPrefix marks tenant codes that default to UK-only
	// residency under strict isolation when the directory record carries no
	// explicit values.
	HealthcareTenantPrefix = "healthcare-"
)
