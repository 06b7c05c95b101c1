// Package assessment provides the HTTP adapter to per-jurisdiction
// compliance assessment providers.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/logger"
)

// HTTPProvider calls one jurisdiction's assessment service over HTTP. The
// provider contract is bounded latency; the aggregator additionally wraps
// every call in its own timeout, so the client here carries no timeout of its
// own beyond the request context.
type HTTPProvider struct {
	jurisdiction constants.Jurisdiction
	baseURL      string
	client       *http.Client
	logger       logger.Logger
}

// NewHTTPProvider creates a provider for one jurisdiction.
func NewHTTPProvider(jurisdiction constants.Jurisdiction, baseURL string, log logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		jurisdiction: jurisdiction,
		baseURL:      baseURL,
		client:       &http.Client{},
		logger:       log.WithComponent("assessment_provider"),
	}
}

// Jurisdiction returns the jurisdiction this provider assesses.
func (p *HTTPProvider) Jurisdiction() constants.Jurisdiction {
	return p.jurisdiction
}

// Assess fetches the jurisdiction assessment for an organization.
func (p *HTTPProvider) Assess(ctx context.Context, organizationID string) (*models.JurisdictionAssessment, error) {
	url := fmt.Sprintf("%s/assessments/%s", p.baseURL, organizationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s assessment call failed: %w", p.jurisdiction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s assessment returned status %d", p.jurisdiction, resp.StatusCode)
	}

	var result models.JurisdictionAssessment
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s assessment response malformed: %w", p.jurisdiction, err)
	}
	result.Jurisdiction = p.jurisdiction
	if result.RegulatoryBody == "" {
		result.RegulatoryBody = p.jurisdiction.RegulatoryBody()
	}

	p.logger.Debug(ctx, "jurisdiction assessment fetched",
		logger.String("jurisdiction", string(p.jurisdiction)),
		logger.String("organization_id", organizationID),
		logger.Duration("latency", time.Since(start)),
	)
	return &result, nil
}
