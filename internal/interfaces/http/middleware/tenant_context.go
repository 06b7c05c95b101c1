package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/internal/application/dto"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
)

// TenantContext resolves the tenant every request acts under. A request with
// no resolvable tenant is rejected with 400; a directory outage surfaces as
// 500, never as a silently missing tenant.
func TenantContext(resolver *domainservice.TenantContextResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := domainservice.ResolutionInput{
			HeaderTenantID: c.GetHeader(constants.HeaderTenantID),
			Host:           c.Request.Host,
			QueryTenantID:  c.Query("tenant_id"),
		}
		if principal := PrincipalFrom(c); principal != nil {
			input.TokenClaimTenantID = principal.TenantID
		}

		tenantCtx, err := resolver.Resolve(c.Request.Context(), input)
		if err != nil {
			dto.SendError(c, err)
			return
		}
		if tenantCtx == nil {
			dto.SendError(c, errors.ErrResolutionFailure("tenant resolution returned nothing"))
			return
		}

		c.Set(string(constants.ContextKeyTenantContext), tenantCtx)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyTenantID, tenantCtx.TenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderTenantID, tenantCtx.TenantID)

		c.Next()
	}
}
