package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careplane/careplane/internal/application/dto"
	appservice "github.com/careplane/careplane/internal/application/service"
	"github.com/careplane/careplane/internal/interfaces/http/middleware"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// PermissionHandler administers explicit cross-tenant grants.
type PermissionHandler struct {
	admin  *appservice.PermissionAdminService
	logger logger.Logger
}

// NewPermissionHandler creates the handler.
func NewPermissionHandler(admin *appservice.PermissionAdminService, log logger.Logger) *PermissionHandler {
	return &PermissionHandler{
		admin:  admin,
		logger: log.WithComponent("permission_handler"),
	}
}

// Grant creates a new cross-tenant permission.
func (h *PermissionHandler) Grant(c *gin.Context) {
	var req dto.GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("malformed grant request").WithCause(err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		dto.SendError(c, errors.ErrUnauthenticated("grant requires an authenticated principal"))
		return
	}

	permission, err := h.admin.Grant(c.Request.Context(), principal, middleware.RequestIDFrom(c), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, dto.FromPermission(permission))
}

// List returns the grants held by the caller's tenant, or by the
// source_tenant_id query parameter when given.
func (h *PermissionHandler) List(c *gin.Context) {
	sourceTenantID := c.Query("source_tenant_id")
	if sourceTenantID == "" {
		if principal := middleware.PrincipalFrom(c); principal != nil {
			sourceTenantID = principal.TenantID
		}
	}
	if sourceTenantID == "" {
		dto.SendError(c, errors.ErrInvalidRequest("no source tenant to list grants for"))
		return
	}

	permissions, err := h.admin.List(c.Request.Context(), sourceTenantID)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	responses := make([]*dto.PermissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		responses = append(responses, dto.FromPermission(permission))
	}
	dto.SendSuccess(c, http.StatusOK, responses)
}

// Revoke deactivates a grant by id.
func (h *PermissionHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("permission id must be a UUID").WithCause(err))
		return
	}

	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		dto.SendError(c, errors.ErrUnauthenticated("revoke requires an authenticated principal"))
		return
	}

	if appErr := h.admin.Revoke(c.Request.Context(), principal, middleware.RequestIDFrom(c), id); appErr != nil {
		dto.SendError(c, appErr)
		return
	}
	c.Status(http.StatusNoContent)
}
