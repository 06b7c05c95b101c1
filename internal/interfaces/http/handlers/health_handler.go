package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/careplane/careplane/pkg/logger"
)

// ReadinessCheck is one named dependency probe.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness. Both are exempt from tenant
// resolution.
type HealthHandler struct {
	checks []ReadinessCheck
	logger logger.Logger
}

// NewHealthHandler creates the handler over the given dependency probes.
func NewHealthHandler(log logger.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: log.WithComponent("health_handler"),
	}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready probes every dependency and reports per-dependency status. Any
// failing probe yields 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[check.Name] = err.Error()
			h.logger.Warn(ctx, "readiness probe failed",
				logger.String("dependency", check.Name),
				logger.Error(err),
			)
			continue
		}
		results[check.Name] = "ok"
	}

	c.JSON(status, gin.H{"status": http.StatusText(status), "dependencies": results})
}
