package service

import (
	"context"

	"github.com/careplane/careplane/internal/application/dto"
	"github.com/careplane/careplane/internal/domain/models"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// AssistantGateway screens assistant traffic after the transport middleware
// has already rejected blocking threats: it sanitizes the free-text message,
// reduces the care context to the allow-listed fields, and audits every
// dropped field.
type AssistantGateway struct {
	sanitizer *domainservice.InputSanitizer
	audit     domainservice.AuditService
	logger    logger.Logger
}

// NewAssistantGateway creates a gateway over the sanitizer and audit trail.
func NewAssistantGateway(sanitizer *domainservice.InputSanitizer,
	audit domainservice.AuditService, log logger.Logger) *AssistantGateway {
	return &AssistantGateway{
		sanitizer: sanitizer,
		audit:     audit,
		logger:    log.WithComponent("assistant_gateway"),
	}
}

// HandleQuery sanitizes one assistant request. Findings are the non-blocking
// violations the transport scan already recorded; they are passed through so
// downstream consumers see what was flagged, never silently hidden.
func (g *AssistantGateway) HandleQuery(ctx context.Context, tenant *models.TenantContext,
	principal *models.Principal, requestID string, req *dto.AssistantQueryRequest,
	findings []models.SecurityViolation) (*dto.AssistantQueryResponse, errors.AppError) {

	sanitizedMessage := g.sanitizer.SanitizeText(req.Message)
	careContext, dropped := g.sanitizer.SanitizeCareContext(ctx, req.CareContext)

	if len(dropped) > 0 {
		event := models.NewAuditEvent(constants.AuditEventFieldDropped,
			tenant.TenantID, principal.UserID, requestID).
			WithDetail("dropped_fields", dropped).
			WithDetail("conversation_id", req.ConversationID)
		if err := g.audit.Record(ctx, event); err != nil {
			g.logger.Error(ctx, "failed to audit dropped care context fields", err)
		}
	}

	return &dto.AssistantQueryResponse{
		TenantID:         tenant.TenantID,
		ConversationID:   req.ConversationID,
		SanitizedMessage: sanitizedMessage,
		CareContext:      careContext,
		DroppedFields:    dropped,
		Findings:         findings,
	}, nil
}
