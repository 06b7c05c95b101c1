// Package handlers implements the HTTP endpoints over the application
// services.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careplane/careplane/internal/application/dto"
	appservice "github.com/careplane/careplane/internal/application/service"
	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/internal/interfaces/http/middleware"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// ComplianceHandler exposes aggregation runs and their snapshot history.
type ComplianceHandler struct {
	aggregator *appservice.ComplianceAggregator
	snapshots  repository.AssessmentRepository
	logger     logger.Logger
}

// NewComplianceHandler creates the handler.
func NewComplianceHandler(aggregator *appservice.ComplianceAggregator,
	snapshots repository.AssessmentRepository, log logger.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		aggregator: aggregator,
		snapshots:  snapshots,
		logger:     log.WithComponent("compliance_handler"),
	}
}

// RunAssessment triggers one aggregation run for the organization in the
// path. A partial failure is reported as a failure naming the succeeded
// subset, never presented as a complete assessment.
func (h *ComplianceHandler) RunAssessment(c *gin.Context) {
	organizationID := c.Param("orgID")
	if organizationID == "" {
		organizationID = uuid.NewString()
	}

	var req dto.RunAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest("malformed assessment request").WithCause(err))
		return
	}

	tenantID := ""
	if tenantCtx := middleware.TenantContextFrom(c); tenantCtx != nil {
		tenantID = tenantCtx.TenantID
	}

	organization := &models.Organization{
		ID:        organizationID,
		TenantID:  tenantID,
		Name:      req.OrganizationName,
		Locations: req.Locations,
	}

	outcome, err := h.aggregator.Run(c.Request.Context(), organization)
	if err != nil {
		if errors.IsCode(err, constants.ErrCodeAggregationPartial) && outcome != nil {
			failed := make([]string, 0, len(outcome.Failed))
			for _, jurisdiction := range outcome.Failed {
				failed = append(failed, string(jurisdiction))
			}
			c.AbortWithStatusJSON(err.HTTPStatus(), dto.PartialAssessmentResponse{
				Partial:                true,
				SucceededJurisdictions: outcome.Succeeded,
				FailedJurisdictions:    failed,
			})
			return
		}
		dto.SendError(c, err)
		return
	}

	dto.SendSuccess(c, http.StatusCreated, dto.FromAssessment(outcome.Assessment))
}

// History returns the organization's snapshot history, newest first.
func (h *ComplianceHandler) History(c *gin.Context) {
	organizationID := c.Param("orgID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	snapshots, err := h.snapshots.FindByOrganization(c.Request.Context(), organizationID, limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	responses := make([]*dto.AssessmentResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		responses = append(responses, dto.FromAssessment(snapshot))
	}
	dto.SendSuccess(c, http.StatusOK, responses)
}
