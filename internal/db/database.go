package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nizami/nizami-backend/internal/config"
	"github.com/nizami/nizami-backend/internal/database"
)

// Database wraps the pgx pool of the LLM exchange log database. That tier is
// append-only and kept apart from the primary store.
type Database struct {
	Pool *pgxpool.Pool
}

// Connect opens a pool against the logs database
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	poolCfg, err := pgxpool.ParseConfig(database.GetDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse logs database config: %w", err)
	}
	poolCfg.MaxConns = 10

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to logs database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping logs database: %w", err)
	}

	return &Database{Pool: pool}, nil
}

// NewDatabase wraps an existing pool
func NewDatabase(pool *pgxpool.Pool) *Database {
	return &Database{Pool: pool}
}

// Close closes the pool
func (d *Database) Close() {
	if d.Pool != nil {
		d.Pool.Close()
	}
}
