// Package postgres provides the pgx-backed tenant directory adapter and its
// connection pool management.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careplane/careplane/internal/config"
	"github.com/careplane/careplane/pkg/logger"
)

// DBConnection manages the PostgreSQL connection pool lifecycle.
type DBConnection struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewDBConnection creates a pool from configuration and verifies it with an
// initial ping.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	log.Info(ctx, "postgres connection pool initialized",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)
	return &DBConnection{pool: pool, logger: log}, nil
}

// Pool returns the underlying pool.
func (c *DBConnection) Pool() *pgxpool.Pool { return c.pool }

// Ping verifies connectivity, for readiness checks.
func (c *DBConnection) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases the pool.
func (c *DBConnection) Close() {
	c.pool.Close()
}
