package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/errors"
)

// fakePermissionRepo is an in-memory permission store.
type fakePermissionRepo struct {
	grants  []*models.CrossTenantPermission
	failure errors.AppError
	calls   int
}

func (f *fakePermissionRepo) FindBySourceTenant(_ context.Context, sourceTenantID string) ([]*models.CrossTenantPermission, errors.AppError) {
	f.calls++
	if f.failure != nil {
		return nil, f.failure
	}
	var matched []*models.CrossTenantPermission
	for _, grant := range f.grants {
		if grant.SourceTenantID == sourceTenantID {
			matched = append(matched, grant)
		}
	}
	return matched, nil
}

func (f *fakePermissionRepo) Save(_ context.Context, permission *models.CrossTenantPermission) errors.AppError {
	f.grants = append(f.grants, permission)
	return nil
}

func (f *fakePermissionRepo) Deactivate(_ context.Context, id uuid.UUID) errors.AppError {
	for _, grant := range f.grants {
		if grant.ID == id {
			grant.IsActive = false
			return nil
		}
	}
	return errors.ErrNotFound("permission", id.String())
}

// fakeGeoClassifier returns a fixed country per IP.
type fakeGeoClassifier struct {
	countries map[string]string
	err       error
}

func (f *fakeGeoClassifier) Classify(_ context.Context, originIP string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if country, ok := f.countries[originIP]; ok {
		return country, nil
	}
	return "UNKNOWN", nil
}

// fakeDirectory is an in-memory tenant directory counting lookups.
type fakeDirectory struct {
	byID        map[string]*models.TenantContext
	bySubdomain map[string]*models.TenantContext
	failure     errors.AppError
	lookups     int
}

func (f *fakeDirectory) ResolveByID(_ context.Context, tenantID string) (*models.TenantContext, errors.AppError) {
	f.lookups++
	if f.failure != nil {
		return nil, f.failure
	}
	if tenantCtx, ok := f.byID[tenantID]; ok {
		return tenantCtx, nil
	}
	return nil, errors.ErrNotFound("tenant", tenantID)
}

func (f *fakeDirectory) ResolveBySubdomain(_ context.Context, subdomain string) (*models.TenantContext, errors.AppError) {
	f.lookups++
	if f.failure != nil {
		return nil, f.failure
	}
	if tenantCtx, ok := f.bySubdomain[subdomain]; ok {
		return tenantCtx, nil
	}
	return nil, errors.ErrNotFound("tenant", subdomain)
}

// fakeCache is a plain map cache with no TTL.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*models.TenantContext
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.TenantContext)}
}

func (f *fakeCache) Get(key string) (*models.TenantContext, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tenantCtx, ok := f.entries[key]
	return tenantCtx, ok
}

func (f *fakeCache) Set(key string, tenantCtx *models.TenantContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = tenantCtx
}

func (f *fakeCache) Invalidate(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}
