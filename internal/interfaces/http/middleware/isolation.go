package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/internal/application/dto"
	"github.com/careplane/careplane/internal/domain/models"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// Isolation validates every protected request against the tenant boundary.
// Any violation denies with 403 and the itemized violation list; the evidence
// itself stays in the audit trail and is never returned to the caller.
func Isolation(validator *domainservice.IsolationValidator, audit domainservice.AuditService,
	metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {

	log = log.WithComponent("isolation_middleware")
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		tenantCtx := TenantContextFrom(c)
		if principal == nil || tenantCtx == nil {
			dto.SendError(c, errors.ErrUnauthenticated("isolation requires an authenticated tenant request"))
			return
		}

		body, err := peekBody(c)
		if err != nil {
			dto.SendError(c, errors.ErrInvalidRequest("unreadable request body").WithCause(err))
			return
		}

		request := domainservice.AccessRequest{
			Principal:     principal,
			TenantContext: tenantCtx,
			ResourceTenantID: domainservice.ExtractResourceTenantID(
				c.Request.URL.Path, c.Query("tenant_id"), decodeJSONBody(c, body)),
			Resource: c.Request.URL.Path,
			Action:   actionForMethod(c.Request.Method),
			OriginIP: c.ClientIP(),
		}

		decision, appErr := validator.Validate(c.Request.Context(), request)
		if appErr != nil {
			dto.SendError(c, appErr)
			return
		}

		metrics.RecordIsolationDecision(tenantCtx.TenantID, decision.Valid)
		if !decision.Valid {
			event := models.NewAuditEvent(constants.AuditEventIsolationDenied,
				tenantCtx.TenantID, principal.UserID, RequestIDFrom(c)).
				WithDetail("violations", decision.Violations).
				WithDetail("resource", request.Resource).
				WithDetail("action", request.Action).
				WithDetail("origin_ip", request.OriginIP)
			if auditErr := audit.Record(c.Request.Context(), event); auditErr != nil {
				log.Error(c.Request.Context(), "failed to audit isolation denial", auditErr)
			}
			dto.SendError(c, errors.ErrIsolationViolation(decision.Violations))
			return
		}

		c.Set(string(constants.ContextKeyIsolation), decision)
		c.Header(constants.HeaderIsolationChecked, "true")

		c.Next()
	}
}

func actionForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
