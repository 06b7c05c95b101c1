package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/careplane/careplane/internal/domain/models"
	"github.com/careplane/careplane/internal/domain/repository"
	"github.com/careplane/careplane/pkg/constants"
	"github.com/careplane/careplane/pkg/errors"
	"github.com/careplane/careplane/pkg/logger"
)

const tenantColumns = `tenant_id, tenant_code, data_residency, jurisdiction, compliance_level, isolation_level`

// TenantDirectoryImpl is the postgres-backed tenant directory. Rows with
// empty residency or isolation columns fall back to the healthcare-class
// defaults applied by the domain constructor.
type TenantDirectoryImpl struct {
	db     *DBConnection
	logger logger.Logger
}

// NewTenantDirectory creates the directory adapter.
func NewTenantDirectory(db *DBConnection, log logger.Logger) repository.TenantDirectory {
	return &TenantDirectoryImpl{
		db:     db,
		logger: log.WithComponent("tenant_directory"),
	}
}

// ResolveByID resolves a tenant by id.
func (d *TenantDirectoryImpl) ResolveByID(ctx context.Context, tenantID string) (*models.TenantContext, errors.AppError) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_id = $1 AND deleted_at IS NULL`
	return d.queryOne(ctx, query, tenantID)
}

// ResolveBySubdomain resolves a tenant by its subdomain label.
func (d *TenantDirectoryImpl) ResolveBySubdomain(ctx context.Context, subdomain string) (*models.TenantContext, errors.AppError) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1 AND deleted_at IS NULL`
	return d.queryOne(ctx, query, subdomain)
}

func (d *TenantDirectoryImpl) queryOne(ctx context.Context, query, arg string) (*models.TenantContext, errors.AppError) {
	row := d.db.Pool().QueryRow(ctx, query, arg)

	var tenantID, tenantCode, residency, jurisdiction, complianceLevel, isolation string
	err := row.Scan(&tenantID, &tenantCode, &residency, &jurisdiction, &complianceLevel, &isolation)
	if err == pgx.ErrNoRows {
		return nil, errors.ErrNotFound("tenant", arg)
	}
	if err != nil {
		d.logger.Error(ctx, "tenant directory query failed", err)
		return nil, errors.ErrLookupFailure("tenant directory", err)
	}

	return models.NewTenantContext(
		tenantID,
		tenantCode,
		constants.DataResidency(residency),
		constants.Jurisdiction(jurisdiction),
		complianceLevel,
		constants.IsolationLevel(isolation),
	), nil
}
