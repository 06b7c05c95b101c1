// Package logger provides structured, context-aware logging for the
// careplane service. Implementations attach OpenTelemetry trace identifiers
// and request-scoped tenant metadata to every entry and mask sensitive field
// values before they are written.
package logger

import (
	"context"
	"strings"
	"time"

	"github.com/careplane/careplane/pkg/constants"
)

// Logger is the structured logging interface used across the service.
type Logger interface {
	Debug(ctx context.Context, message string, fields ...Field)
	Info(ctx context.Context, message string, fields ...Field)
	Warn(ctx context.Context, message string, fields ...Field)
	Error(ctx context.Context, message string, err error, fields ...Field)
	Fatal(ctx context.Context, message string, err error, fields ...Field)

	// WithFields returns a logger that includes the given fields on every entry.
	WithFields(fields ...Field) Logger

	// WithComponent returns a logger scoped to a named component.
	WithComponent(component string) Logger
}

// ================================================================================
// Fields
// ================================================================================

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int creates an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Float64 creates a float64 field.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

// Bool creates a boolean field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration creates a duration field rendered as a string.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates an RFC3339 time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any creates a field with an arbitrary value.
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// Error creates an error field.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// ================================================================================
// Context Extraction
// ================================================================================

// ContextFields extracts request-scoped identifiers from the context so
// implementations emit them uniformly.
func ContextFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	var fields []Field
	if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && requestID != "" {
		fields = append(fields, String("request_id", requestID))
	}
	if tenantID, ok := ctx.Value(constants.ContextKeyTenantID).(string); ok && tenantID != "" {
		fields = append(fields, String("tenant_id", tenantID))
	}
	if userID, ok := ctx.Value(constants.ContextKeyUserID).(string); ok && userID != "" {
		fields = append(fields, String("user_id", userID))
	}
	return fields
}

// ================================================================================
// Sensitive Value Masking
// ================================================================================

var sensitiveKeys = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"private_key",
	"evidence",
}

// SanitizeValue masks values whose keys look sensitive. Threat evidence is
// masked in logs; the full value only travels on the signed audit record.
func SanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			if str, ok := value.(string); ok && str != "" {
				return maskString(str)
			}
			return "***REDACTED***"
		}
	}
	return value
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
