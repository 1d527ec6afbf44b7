package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the ledger connection pool.
type PoolConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	StatementTimeout time.Duration
	ApplicationName  string
}

// ParsePoolConfig merges c into the pgx settings parsed from the DSN. Sessions
// run in UTC so posting dates and period boundaries compare as stored.
func ParsePoolConfig(c PoolConfig) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if c.MaxConns > 0 {
		config.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		if c.MinConns > config.MaxConns {
			return nil, fmt.Errorf("platform/db: min conns %d exceeds max conns %d", c.MinConns, config.MaxConns)
		}
		config.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		config.MaxConnLifetime = c.MaxConnLifetime
	}
	params := config.ConnConfig.RuntimeParams
	params["timezone"] = "UTC"
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}
	if c.ApplicationName != "" {
		params["application_name"] = c.ApplicationName
	}
	return config, nil
}

// New opens the pool and verifies the server answers.
func New(ctx context.Context, c PoolConfig) (*pgxpool.Pool, error) {
	config, err := ParsePoolConfig(c)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping %s: %w", config.ConnConfig.Database, err)
	}
	return pool, nil
}
