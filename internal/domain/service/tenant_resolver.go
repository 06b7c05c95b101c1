package service

import (
	"context"
	"net"
	"strings"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

// ResolutionInput carries the tenant candidates a request may present.
// Resolution order is fixed and short-circuits on the first candidate:
// token claim, explicit header, subdomain, then the dev-only query parameter.
type ResolutionInput struct {
	TokenClaimTenantID string
	HeaderTenantID     string
	Host               string
	QueryTenantID      string
}

// TenantContextResolver resolves the tenant a request belongs to through a
// read-through TTL cache backed by the tenant directory.
type TenantContextResolver struct {
	directory       repository.TenantDirectory
	cache           TenantContextCache
	logger          logger.Logger
	allowQueryParam bool
}

// NewTenantContextResolver creates a resolver. allowQueryParam enables the
// query-parameter candidate and must be false in production.
func NewTenantContextResolver(directory repository.TenantDirectory, cache TenantContextCache,
	allowQueryParam bool, log logger.Logger) *TenantContextResolver {

	return &TenantContextResolver{
		directory:       directory,
		cache:           cache,
		logger:          log.WithComponent("tenant_resolver"),
		allowQueryParam: allowQueryParam,
	}
}

// Resolve walks the candidate chain and returns the first context a known
// tenant resolves to. If no candidate resolves, the request fails with a
// ResolutionFailure; callers exempt paths such as health checks before
// calling.
func (r *TenantContextResolver) Resolve(ctx context.Context, input ResolutionInput) (*models.TenantContext, errors.AppError) {
	if input.TokenClaimTenantID != "" {
		return r.resolveByID(ctx, input.TokenClaimTenantID)
	}
	if input.HeaderTenantID != "" {
		return r.resolveByID(ctx, input.HeaderTenantID)
	}
	if subdomain := extractSubdomain(input.Host); subdomain != "" {
		return r.resolveBySubdomain(ctx, subdomain)
	}
	if r.allowQueryParam && input.QueryTenantID != "" {
		return r.resolveByID(ctx, input.QueryTenantID)
	}
	return nil, errors.ErrResolutionFailure("request carries no tenant candidate")
}

func (r *TenantContextResolver) resolveByID(ctx context.Context, tenantID string) (*models.TenantContext, errors.AppError) {
	return r.readThrough(ctx, "id:"+tenantID, func() (*models.TenantContext, errors.AppError) {
		return r.directory.ResolveByID(ctx, tenantID)
	})
}

func (r *TenantContextResolver) resolveBySubdomain(ctx context.Context, subdomain string) (*models.TenantContext, errors.AppError) {
	return r.readThrough(ctx, "subdomain:"+subdomain, func() (*models.TenantContext, errors.AppError) {
		return r.directory.ResolveBySubdomain(ctx, subdomain)
	})
}

// readThrough serves from cache when possible, otherwise consults the
// directory and populates the cache. A directory miss becomes a
// ResolutionFailure; a directory outage stays a LookupFailure and is never
// downgraded.
func (r *TenantContextResolver) readThrough(ctx context.Context, key string,
	lookup func() (*models.TenantContext, errors.AppError)) (*models.TenantContext, errors.AppError) {

	if cached, ok := r.cache.Get(key); ok {
		return cached.Clone(), nil
	}

	tenantCtx, err := lookup()
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.ErrResolutionFailure("no known tenant for candidate").WithCause(err)
		}
		return nil, err
	}

	r.cache.Set(key, tenantCtx)
	r.logger.Debug(ctx, "tenant context cached",
		logger.String("cache_key", key),
		logger.String("tenant_id", tenantCtx.TenantID),
	)
	return tenantCtx.Clone(), nil
}

// extractSubdomain returns the first host label as a tenant candidate,
// excluding the shared www and api labels, bare domains and IP literals.
func extractSubdomain(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return ""
	}
	first := strings.ToLower(labels[0])
	if first == "www" || first == "api" {
		return ""
	}
	return first
}
