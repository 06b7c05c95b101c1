package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careplane/careplane/internal/domain/models"
	domainservice "github.com/careplane/careplane/internal/domain/service"
	"github.com/careplane/careplane/internal/infrastructure/monitoring"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// fakeProvider serves canned assessments, optionally failing the first N
// calls or hanging until the context expires.
type fakeProvider struct {
	mu           sync.Mutex
	jurisdiction constants.Jurisdiction
	assessment   *models.JurisdictionAssessment
	failFirst    int
	hang         bool
	calls        int
}

func (p *fakeProvider) Jurisdiction() constants.Jurisdiction { return p.jurisdiction }

func (p *fakeProvider) Assess(ctx context.Context, _ string) (*models.JurisdictionAssessment, error) {
	p.mu.Lock()
	p.calls++
	calls := p.calls
	p.mu.Unlock()

	if p.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if calls <= p.failFirst {
		return nil, errors.ErrLookupFailure("assessment provider", nil)
	}
	return p.assessment, nil
}

// fakeSnapshotRepo records saved snapshots in memory.
type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []*models.MultiJurisdictionalAssessment
	failure   errors.AppError
}

func (r *fakeSnapshotRepo) SaveSnapshot(_ context.Context, snapshot *models.MultiJurisdictionalAssessment) errors.AppError {
	if r.failure != nil {
		return r.failure
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
	return nil
}

func (r *fakeSnapshotRepo) FindByOrganization(_ context.Context, organizationID string, _ int) ([]*models.MultiJurisdictionalAssessment, errors.AppError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*models.MultiJurisdictionalAssessment
	for _, snapshot := range r.snapshots {
		if snapshot.OrganizationID == organizationID {
			matched = append(matched, snapshot)
		}
	}
	return matched, nil
}

func provider(jurisdiction constants.Jurisdiction, score float64, opts ...func(*fakeProvider)) *fakeProvider {
	p := &fakeProvider{
		jurisdiction: jurisdiction,
		assessment: &models.JurisdictionAssessment{
			Jurisdiction:   jurisdiction,
			RegulatoryBody: jurisdiction.RegulatoryBody(),
			OverallScore:   score,
			DomainScores:   map[string]float64{"safeguarding": score},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newAggregator(repo *fakeSnapshotRepo, timeout time.Duration,
	providers ...*fakeProvider) *ComplianceAggregator {

	providerMap := make(map[constants.Jurisdiction]domainservice.AssessmentProvider, len(providers))
	for _, p := range providers {
		providerMap[p.jurisdiction] = p
	}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewComplianceAggregator(domainservice.NewJurisdictionClassifier(), providerMap,
		repo, metrics, logger.NewNoopLogger(), timeout, 5*time.Millisecond)
}

func multiSiteOrg() *models.Organization {
	return &models.Organization{
		ID:       "org-1",
		TenantID: "tenant-a",
		Name:     "Oakwood Care Group",
		Locations: []models.Location{
			{Name: "Westminster Lodge", Postcode: "SW1A 1AA"},
			{Name: "Cardiff Bay House", Postcode: "CF10 1AA"},
		},
	}
}

func TestRun_UnweightedMeanAcrossJurisdictions(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	aggregator := newAggregator(repo, time.Second,
		provider(constants.JurisdictionEngland, 90),
		provider(constants.JurisdictionWales, 70),
	)

	outcome, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.Nil(t, err)
	require.NotNil(t, outcome.Assessment)

	assert.InDelta(t, 80.0, outcome.Assessment.OverallComplianceScore, 0.001)
	assert.Len(t, outcome.Assessment.Jurisdictions, 2)
	assert.Equal(t, "CQC", outcome.Assessment.Jurisdictions[constants.JurisdictionEngland].RegulatoryBody)
}

func TestRun_SnapshotPersisted(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	aggregator := newAggregator(repo, time.Second,
		provider(constants.JurisdictionEngland, 90),
		provider(constants.JurisdictionWales, 70),
	)

	outcome, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.Nil(t, err)
	require.Len(t, repo.snapshots, 1)
	assert.Equal(t, outcome.Assessment.ID, repo.snapshots[0].ID)
	assert.Equal(t, "org-1", repo.snapshots[0].OrganizationID)
}

func TestRun_TimeoutFailsWholeAggregation(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	hanging := provider(constants.JurisdictionWales, 70)
	hanging.hang = true
	aggregator := newAggregator(repo, 20*time.Millisecond,
		provider(constants.JurisdictionEngland, 90),
		hanging,
	)

	// One jurisdiction timing out must fail the run outright. Serving the
	// surviving subset as a complete assessment would misstate compliance,
	// so partial success is deliberately not a success.
	outcome, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.NotNil(t, err)
	assert.Equal(t, constants.ErrCodeAggregationPartial, err.Code())
	assert.Nil(t, outcome.Assessment)
	assert.Equal(t, []constants.Jurisdiction{constants.JurisdictionWales}, outcome.Failed)
	assert.Contains(t, outcome.Succeeded, constants.JurisdictionEngland)
	assert.Empty(t, repo.snapshots, "failed aggregation must not persist a snapshot")
}

func TestRun_TransientFailureRetriedOnce(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	flaky := provider(constants.JurisdictionEngland, 90)
	flaky.failFirst = 1
	aggregator := newAggregator(repo, time.Second, flaky)

	org := &models.Organization{ID: "org-1", Locations: []models.Location{{Postcode: "SW1A 1AA"}}}
	outcome, err := aggregator.Run(context.Background(), org)
	require.Nil(t, err)
	assert.NotNil(t, outcome.Assessment)
	assert.Equal(t, 2, flaky.calls)
}

func TestRun_SecondFailureIsFinal(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	broken := provider(constants.JurisdictionEngland, 90)
	broken.failFirst = 2
	aggregator := newAggregator(repo, time.Second, broken)

	org := &models.Organization{ID: "org-1", Locations: []models.Location{{Postcode: "SW1A 1AA"}}}
	_, err := aggregator.Run(context.Background(), org)
	require.NotNil(t, err)
	assert.Equal(t, constants.ErrCodeAggregationPartial, err.Code())
	assert.Equal(t, 2, broken.calls, "exactly one retry")
}

func TestRun_MissingProviderFailsBeforeFanOut(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	aggregator := newAggregator(repo, time.Second,
		provider(constants.JurisdictionEngland, 90))

	_, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.NotNil(t, err)
	assert.Equal(t, constants.ErrCodeAggregationPartial, err.Code())
}

func TestRun_NoClassifiableLocations(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	aggregator := newAggregator(repo, time.Second)

	org := &models.Organization{ID: "org-1", Locations: []models.Location{{Postcode: "75001"}}}
	outcome, err := aggregator.Run(context.Background(), org)
	require.Nil(t, err)
	assert.NotNil(t, outcome.Assessment)
	assert.Empty(t, outcome.Assessment.Jurisdictions)
	assert.Zero(t, outcome.Assessment.OverallComplianceScore)
	assert.Empty(t, repo.snapshots, "no snapshot for an empty assessment")
}

func TestRun_DivergentDomainScoresFlaggedAsRisk(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	aggregator := newAggregator(repo, time.Second,
		provider(constants.JurisdictionEngland, 95),
		provider(constants.JurisdictionWales, 70),
	)

	outcome, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.Nil(t, err)
	require.NotEmpty(t, outcome.Assessment.CrossJurisdictionalRisks)
	assert.Contains(t, outcome.Assessment.CrossJurisdictionalRisks[0], "safeguarding")
}

func TestRun_LowScoreAndOverdueInspectionRisks(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	overdue := time.Now().UTC().Add(-48 * time.Hour)
	low := provider(constants.JurisdictionEngland, 55)
	low.assessment.NextInspection = &overdue
	aggregator := newAggregator(repo, time.Second, low)

	org := &models.Organization{ID: "org-1", Locations: []models.Location{{Postcode: "SW1A 1AA"}}}
	outcome, err := aggregator.Run(context.Background(), org)
	require.Nil(t, err)

	risks := outcome.Assessment.CrossJurisdictionalRisks
	require.Len(t, risks, 2)
	assert.Contains(t, risks[0], "low overall compliance")
	assert.Contains(t, risks[1], "inspection overdue")
}

func TestRun_RecommendationsUnionedAndDeduplicated(t *testing.T) {
	repo := &fakeSnapshotRepo{}
	england := provider(constants.JurisdictionEngland, 90)
	england.assessment.Recommendations = []string{"update safeguarding policy", "staff training refresh"}
	wales := provider(constants.JurisdictionWales, 88)
	wales.assessment.Recommendations = []string{"staff training refresh", "welsh language provision"}
	aggregator := newAggregator(repo, time.Second, england, wales)

	outcome, err := aggregator.Run(context.Background(), multiSiteOrg())
	require.Nil(t, err)
	assert.Equal(t, []string{
		"update safeguarding policy",
		"staff training refresh",
		"welsh language provision",
	}, outcome.Assessment.HarmonizedRecommendations)
}

func TestRun_PersistFailurePropagates(t *testing.T) {
	repo := &fakeSnapshotRepo{failure: errors.ErrLookupFailure("snapshot store", nil)}
	aggregator := newAggregator(repo, time.Second,
		provider(constants.JurisdictionEngland, 90))

	org := &models.Organization{ID: "org-1", Locations: []models.Location{{Postcode: "SW1A 1AA"}}}
	_, err := aggregator.Run(context.Background(), org)
	require.NotNil(t, err)
	assert.Equal(t, constants.ErrCodeLookupFailure, err.Code())
}
