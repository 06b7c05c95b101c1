// Package gormdb provides the gorm-backed stores for cross-tenant
// permissions and compliance snapshots.
package gormdb

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/internal/domain/models"
)

// Open connects gorm to postgres and migrates the careplane tables.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the permission and snapshot tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CrossTenantPermission{},
		&models.MultiJurisdictionalAssessment{},
	)
}
