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

// RateLimit bounds assistant traffic per tenant. This is a resource control,
// not an isolation control: a limiter outage fails open and the request
// proceeds.
func RateLimit(limiter domainservice.RateLimiter, limit int64, audit domainservice.AuditService,
	metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {

	log = log.WithComponent("rate_limit_middleware")
	return func(c *gin.Context) {
		tenantCtx := TenantContextFrom(c)
		if tenantCtx == nil {
			dto.SendError(c, errors.ErrUnauthenticated("rate limiting requires a tenant context"))
			return
		}

		allowed, _, err := limiter.Allow(c.Request.Context(), "assistant:"+tenantCtx.TenantID)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordRateLimitHit(tenantCtx.TenantID)
			userID := ""
			if principal := PrincipalFrom(c); principal != nil {
				userID = principal.UserID
			}
			event := models.NewAuditEvent(constants.AuditEventRateLimitExceeded,
				tenantCtx.TenantID, userID, RequestIDFrom(c)).
				WithViolations([]models.SecurityViolation{models.NewSecurityViolation(
					constants.ViolationRateLimitExceeded, constants.SeverityMedium,
					"assistant request budget exhausted", true)}).
				WithDetail("limit", limit)
			if auditErr := audit.Record(c.Request.Context(), event); auditErr != nil {
				log.Error(c.Request.Context(), "failed to audit rate limit rejection", auditErr)
			}
			dto.SendError(c, errors.ErrRateLimited("assistant", limit))
			return
		}

		c.Next()
	}
}
