package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/internal/application/dto"
	"github.com/careplane/careplane/internal/domain/models"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// ThreatScan screens the serialized request body before it reaches the
// assistant. Blocking findings deny with 403 carrying only the violation
// types; non-blocking findings ride along in the request context so the
// gateway can surface them.
func ThreatScan(scanner *domainservice.ThreatPatternScanner, audit domainservice.AuditService,
	metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {

	log = log.WithComponent("threat_scan_middleware")
	return func(c *gin.Context) {
		body, err := peekBody(c)
		if err != nil {
			dto.SendError(c, errors.ErrInvalidRequest("unreadable request body").WithCause(err))
			return
		}

		result := scanner.Scan(c.Request.Context(), body)
		for _, violation := range result.Violations {
			metrics.RecordThreatDetection(violation.Type, violation.Severity, violation.Blocked)
		}

		if len(result.Violations) > 0 {
			tenantID, userID := "", ""
			if tenantCtx := TenantContextFrom(c); tenantCtx != nil {
				tenantID = tenantCtx.TenantID
			}
			if principal := PrincipalFrom(c); principal != nil {
				userID = principal.UserID
			}
			eventType := constants.AuditEventThreatDetected
			if !result.Blocked {
				eventType = constants.AuditEventStructuralViolation
			}
			event := models.NewAuditEvent(eventType, tenantID, userID, RequestIDFrom(c)).
				WithViolations(result.Violations).
				WithDetail("blocked", result.Blocked)
			if auditErr := audit.Record(c.Request.Context(), event); auditErr != nil {
				log.Error(c.Request.Context(), "failed to audit threat findings", auditErr)
			}
		}

		if result.Blocked {
			dto.SendError(c, errors.ErrThreatDetected(result.BlockedTypes()))
			return
		}
		if len(result.Violations) > 0 {
			c.Set(string(constants.ContextKeyViolations), result.Violations)
		}

		c.Next()
	}
}
