// Package db manages the PostgreSQL connection pool behind the fleet data
// source.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/metrorun/inductor/internal/config"
	"github.com/metrorun/inductor/internal/persistence/postgres"
)

const queryTimeout = 30 * time.Second

// Manager owns the connection pool and the repositories built on it.
type Manager struct {
	db    *sqlx.DB
	fleet *postgres.FleetRepo
}

// NewManager opens and verifies a pooled connection.
func NewManager(cfg config.DatabaseConfig) (*Manager, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Manager{
		db:    db,
		fleet: postgres.NewFleetRepo(db, queryTimeout),
	}, nil
}

// FleetRepo returns the fleet data source backed by this pool.
func (m *Manager) FleetRepo() *postgres.FleetRepo {
	return m.fleet
}

// Health pings the pool.
func (m *Manager) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

// Close releases the pool.
func (m *Manager) Close() error {
	return m.db.Close()
}
