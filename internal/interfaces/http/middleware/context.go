// Package middleware implements the trust-boundary request pipeline:
// request identity, principal authentication, tenant context resolution,
// isolation validation, threat scanning and assistant rate limiting.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
)

// RequestIDFrom returns the request ID assigned by the RequestID middleware.
func RequestIDFrom(c *gin.Context) string {
	if requestID, ok := c.Get(string(constants.ContextKeyRequestID)); ok {
		if s, ok := requestID.(string); ok {
			return s
		}
	}
	return ""
}

// PrincipalFrom returns the authenticated principal, or nil before the auth
// middleware has run.
func PrincipalFrom(c *gin.Context) *models.Principal {
	if value, ok := c.Get(string(constants.ContextKeyPrincipal)); ok {
		if principal, ok := value.(*models.Principal); ok {
			return principal
		}
	}
	return nil
}

// TenantContextFrom returns the resolved tenant context, or nil before the
// tenant middleware has run.
func TenantContextFrom(c *gin.Context) *models.TenantContext {
	if value, ok := c.Get(string(constants.ContextKeyTenantContext)); ok {
		if tenantCtx, ok := value.(*models.TenantContext); ok {
			return tenantCtx
		}
	}
	return nil
}

// ViolationsFrom returns the non-blocking violations the threat scan attached
// to the request.
func ViolationsFrom(c *gin.Context) []models.SecurityViolation {
	if value, ok := c.Get(string(constants.ContextKeyViolations)); ok {
		if violations, ok := value.([]models.SecurityViolation); ok {
			return violations
		}
	}
	return nil
}
