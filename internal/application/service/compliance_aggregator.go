// Package service contains the application services orchestrating the domain
// layer: compliance aggregation, assistant screening and permission
// administration.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// domainScoreDivergenceThreshold flags a cross-jurisdictional risk when the
// same conceptual domain scores this far apart between two jurisdictions.
const domainScoreDivergenceThreshold = 20.0

// lowComplianceThreshold flags a jurisdiction whose overall score falls below
// it.
const lowComplianceThreshold = 60.0

// AggregationOutcome is the result of one aggregation run. On failure the
// Assessment is nil and Succeeded/Failed report which jurisdictions
// completed, explicitly labeled partial by the caller.
type AggregationOutcome struct {
	Assessment *models.MultiJurisdictionalAssessment
	Succeeded  map[constants.Jurisdiction]*models.JurisdictionAssessment
	Failed     []constants.Jurisdiction
}

// ComplianceAggregator fans out to per-jurisdiction assessment providers,
// combines scores and derives cross-jurisdictional risk. A single failed or
// timed-out jurisdiction fails the whole aggregation: presenting an
// incomplete compliance picture as complete is a correctness bug, so the
// policy is fail-closed, trading availability for correctness.
type ComplianceAggregator struct {
	classifier *domainservice.JurisdictionClassifier
	providers  map[constants.Jurisdiction]domainservice.AssessmentProvider
	snapshots  repository.AssessmentRepository
	metrics    *monitoring.Metrics
	logger     logger.Logger
	timeout    time.Duration
	backoff    time.Duration
}

// NewComplianceAggregator creates an aggregator over the given providers.
func NewComplianceAggregator(
	classifier *domainservice.JurisdictionClassifier,
	providers map[constants.Jurisdiction]domainservice.AssessmentProvider,
	snapshots repository.AssessmentRepository,
	metrics *monitoring.Metrics,
	log logger.Logger,
	timeout, backoff time.Duration,
) *ComplianceAggregator {
	if timeout <= 0 {
		timeout = constants.DefaultAssessmentTimeout
	}
	if backoff <= 0 {
		backoff = constants.DefaultAssessmentRetryBackoff
	}
	return &ComplianceAggregator{
		classifier: classifier,
		providers:  providers,
		snapshots:  snapshots,
		metrics:    metrics,
		logger:     log.WithComponent("compliance_aggregator"),
		timeout:    timeout,
		backoff:    backoff,
	}
}

// Run classifies the organization's locations, assesses every applicable
// jurisdiction concurrently and persists the combined snapshot. An
// organization with zero classifiable locations yields an empty assessment
// with no snapshot: no applicable regulatory body is not an error.
func (a *ComplianceAggregator) Run(ctx context.Context, org *models.Organization) (*AggregationOutcome, errors.AppError) {
	start := time.Now()

	jurisdictions := a.classifier.Classify(org.Locations)
	if len(jurisdictions) == 0 {
		a.logger.Info(ctx, "organization has no classifiable locations",
			logger.String("organization_id", org.ID))
		return &AggregationOutcome{
			Assessment: models.NewMultiJurisdictionalAssessment(org.ID),
			Succeeded:  map[constants.Jurisdiction]*models.JurisdictionAssessment{},
		}, nil
	}

	for _, jurisdiction := range jurisdictions {
		if _, ok := a.providers[jurisdiction]; !ok {
			a.recordResult("no_provider", start)
			return &AggregationOutcome{Failed: []constants.Jurisdiction{jurisdiction}},
				errors.ErrAggregationPartialFailure(
					[]string{string(jurisdiction)},
					fmt.Errorf("no assessment provider registered for %s", jurisdiction))
		}
	}

	succeeded, failed := a.fanOut(ctx, org.ID, jurisdictions)
	if len(failed) > 0 {
		a.recordResult("partial_failure", start)
		failedNames := make([]string, 0, len(failed))
		for _, j := range failed {
			failedNames = append(failedNames, string(j))
		}
		return &AggregationOutcome{Succeeded: succeeded, Failed: failed},
			errors.ErrAggregationPartialFailure(failedNames, nil)
	}

	assessment := a.combine(org.ID, jurisdictions, succeeded)
	if err := a.snapshots.SaveSnapshot(ctx, assessment); err != nil {
		a.recordResult("persist_failure", start)
		return nil, err
	}

	a.recordResult("success", start)
	a.logger.Info(ctx, "compliance aggregation completed",
		logger.String("organization_id", org.ID),
		logger.Int("jurisdictions", len(jurisdictions)),
		logger.Float64("overall_score", assessment.OverallComplianceScore),
	)
	return &AggregationOutcome{Assessment: assessment, Succeeded: succeeded}, nil
}

// fanOut dispatches one assessment call per jurisdiction concurrently, each
// under its own timeout. The first failure cancels the rest; cancelled calls
// count as failed, never as silently omitted.
func (a *ComplianceAggregator) fanOut(ctx context.Context, organizationID string,
	jurisdictions []constants.Jurisdiction) (map[constants.Jurisdiction]*models.JurisdictionAssessment, []constants.Jurisdiction) {

	var mu sync.Mutex
	succeeded := make(map[constants.Jurisdiction]*models.JurisdictionAssessment, len(jurisdictions))

	g, groupCtx := errgroup.WithContext(ctx)
	for _, jurisdiction := range jurisdictions {
		provider := a.providers[jurisdiction]
		g.Go(func() error {
			result, err := a.assessWithRetry(groupCtx, provider, organizationID)
			if err != nil {
				a.logger.Warn(groupCtx, "jurisdiction assessment failed",
					logger.String("jurisdiction", string(provider.Jurisdiction())),
					logger.Error(err),
				)
				return fmt.Errorf("%s: %w", provider.Jurisdiction(), err)
			}
			mu.Lock()
			succeeded[provider.Jurisdiction()] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var failed []constants.Jurisdiction
	for _, jurisdiction := range jurisdictions {
		if _, ok := succeeded[jurisdiction]; !ok {
			failed = append(failed, jurisdiction)
		}
	}
	return succeeded, failed
}

// assessWithRetry calls the provider under the per-call timeout, retrying
// exactly once after a short backoff. No retry happens once the overall
// deadline is gone.
func (a *ComplianceAggregator) assessWithRetry(ctx context.Context,
	provider domainservice.AssessmentProvider, organizationID string) (*models.JurisdictionAssessment, error) {

	attempt := func() (*models.JurisdictionAssessment, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return provider.Assess(callCtx, organizationID)
	}

	result, err := attempt()
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	select {
	case <-time.After(a.backoff):
	case <-ctx.Done():
		return nil, err
	}
	return attempt()
}

// combine merges per-jurisdiction assessments into one snapshot: the overall
// score is the unweighted arithmetic mean, risks come from fixed heuristics
// and recommendations are unioned and deduplicated, never averaged.
func (a *ComplianceAggregator) combine(organizationID string, jurisdictions []constants.Jurisdiction,
	assessments map[constants.Jurisdiction]*models.JurisdictionAssessment) *models.MultiJurisdictionalAssessment {

	snapshot := models.NewMultiJurisdictionalAssessment(organizationID)

	var total float64
	for _, jurisdiction := range jurisdictions {
		assessment := assessments[jurisdiction]
		snapshot.Jurisdictions[jurisdiction] = assessment
		total += assessment.OverallScore
	}
	snapshot.OverallComplianceScore = total / float64(len(jurisdictions))

	snapshot.CrossJurisdictionalRisks = a.deriveRisks(jurisdictions, assessments)
	snapshot.HarmonizedRecommendations = harmonizeRecommendations(jurisdictions, assessments)
	return snapshot
}

// deriveRisks applies the fixed heuristics over the assembled assessments.
func (a *ComplianceAggregator) deriveRisks(jurisdictions []constants.Jurisdiction,
	assessments map[constants.Jurisdiction]*models.JurisdictionAssessment) []string {

	var risks []string

	// Divergent scores for the same conceptual domain across jurisdictions.
	for _, domain := range collectDomains(jurisdictions, assessments) {
		minScore, maxScore := domainScoreRange(domain, jurisdictions, assessments)
		if maxScore-minScore > domainScoreDivergenceThreshold {
			risks = append(risks, fmt.Sprintf(
				"divergent %s compliance across jurisdictions (%.0f vs %.0f)",
				domain, minScore, maxScore))
		}
	}

	// A jurisdiction scoring low overall puts the whole organization at risk.
	for _, jurisdiction := range jurisdictions {
		if assessments[jurisdiction].OverallScore < lowComplianceThreshold {
			risks = append(risks, fmt.Sprintf(
				"low overall compliance in %s (%.0f)",
				jurisdiction, assessments[jurisdiction].OverallScore))
		}
	}

	// An overdue inspection anywhere is a standing regulatory exposure.
	now := time.Now().UTC()
	for _, jurisdiction := range jurisdictions {
		next := assessments[jurisdiction].NextInspection
		if next != nil && next.Before(now) {
			risks = append(risks, fmt.Sprintf("inspection overdue in %s", jurisdiction))
		}
	}
	return risks
}

// collectDomains returns every domain name appearing in at least two
// jurisdictions, sorted for determinism.
func collectDomains(jurisdictions []constants.Jurisdiction,
	assessments map[constants.Jurisdiction]*models.JurisdictionAssessment) []string {

	counts := make(map[string]int)
	for _, jurisdiction := range jurisdictions {
		for domain := range assessments[jurisdiction].DomainScores {
			counts[domain]++
		}
	}

	var shared []string
	for domain, count := range counts {
		if count >= 2 {
			shared = append(shared, domain)
		}
	}
	sort.Strings(shared)
	return shared
}

func domainScoreRange(domain string, jurisdictions []constants.Jurisdiction,
	assessments map[constants.Jurisdiction]*models.JurisdictionAssessment) (float64, float64) {

	first := true
	var minScore, maxScore float64
	for _, jurisdiction := range jurisdictions {
		score, ok := assessments[jurisdiction].DomainScores[domain]
		if !ok {
			continue
		}
		if first {
			minScore, maxScore = score, score
			first = false
			continue
		}
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}
	return minScore, maxScore
}

// harmonizeRecommendations unions recommendations across jurisdictions,
// deduplicated, preserving the fixed jurisdiction order so the output is
// independent of input ordering.
func harmonizeRecommendations(jurisdictions []constants.Jurisdiction,
	assessments map[constants.Jurisdiction]*models.JurisdictionAssessment) []string {

	seen := make(map[string]bool)
	var harmonized []string
	for _, jurisdiction := range jurisdictions {
		for _, recommendation := range assessments[jurisdiction].Recommendations {
			if !seen[recommendation] {
				seen[recommendation] = true
				harmonized = append(harmonized, recommendation)
			}
		}
	}
	return harmonized
}

func (a *ComplianceAggregator) recordResult(result string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordAggregation(result, time.Since(start))
	}
}
