package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/internal/application/dto"
	appservice "github.com/careplane/careplane/internal/application/service"
	"github.com/careplane/careplane/internal/interfaces/http/middleware"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// AssistantHandler exposes the screened conversational-assistant boundary.
// By the time a request reaches it, the threat scan has already rejected
// blocking payloads; the handler sanitizes what remains.
type AssistantHandler struct {
	gateway *appservice.AssistantGateway
	logger  logger.Logger
}

// NewAssistantHandler creates the handler.
func NewAssistantHandler(gateway *appservice.AssistantGateway, log logger.Logger) *AssistantHandler {
	return &AssistantHandler{
		gateway: gateway,
		logger:  log.WithComponent("assistant_handler"),
	}
}

// Query screens one assistant query and returns the sanitized payload.
func (h *AssistantHandler) Query(c *gin.Context) {
	var req dto.AssistantQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("malformed assistant query").WithCause(err))
		return
	}

	tenantCtx := middleware.TenantContextFrom(c)
	principal := middleware.PrincipalFrom(c)
	if tenantCtx == nil || principal == nil {
		dto.SendError(c, errors.ErrUnauthenticated("assistant requires an authenticated tenant request"))
		return
	}

	response, err := h.gateway.HandleQuery(c.Request.Context(), tenantCtx, principal,
		middleware.RequestIDFrom(c), &req, middleware.ViolationsFrom(c))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, response)
}
