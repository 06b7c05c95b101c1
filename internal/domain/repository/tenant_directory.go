// Package repository defines the storage and collaborator interfaces the
// domain layer depends on. Implementations live under
// internal/infrastructure; all of them are constructor-injected so tests run
// against fakes.
package repository

import (
	"context"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/pkg/errors"
)

// TenantDirectory resolves tenant identifiers to tenant contexts. It is the
// authoritative source behind the read-through tenant-context cache.
type TenantDirectory interface {
	// ResolveByID resolves a tenant by its id. Returns a not-found AppError
	// for unknown tenants and a lookup-failure AppError when the directory is
	// unreachable.
	ResolveByID(ctx context.Context, tenantID string) (*models.TenantContext, errors.AppError)

	// ResolveBySubdomain resolves a tenant by its subdomain label.
	ResolveBySubdomain(ctx context.Context, subdomain string) (*models.TenantContext, errors.AppError)
}
