// Package postgres persists trainers and their creature records in
// PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/config"
)

// applicationName tags every connection in pg_stat_activity.
const applicationName = "critterbound"

// Pool owns the pgx connection pool and the repositories built on it.
type Pool struct {
	pool      *pgxpool.Pool
	trainers  *TrainerRepository
	creatures *CreatureRepository
}

// NewPool connects to the database described by cfg.
//
// Precondition: cfg must contain valid database connection parameters;
// logger may be nil.
// Postcondition: Returns a pinged Pool whose repositories are ready, or a
// non-nil error with no connections left open.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	logger.Debug("database connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
	)

	return &Pool{
		pool:      pool,
		trainers:  NewTrainerRepository(pool),
		creatures: NewCreatureRepository(pool),
	}, nil
}

// Trainers returns the trainer repository.
func (p *Pool) Trainers() *TrainerRepository { return p.trainers }

// Creatures returns the creature repository.
func (p *Pool) Creatures() *CreatureRepository { return p.creatures }

// Health checks that the database is reachable within timeout.
//
// Precondition: The pool must not be closed.
// Postcondition: Returns nil iff the database answered a ping in time.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// ExecScript runs a multi-statement SQL script such as a migration file.
//
// Postcondition: Returns a wrapped error naming the script on failure.
func (p *Pool) ExecScript(ctx context.Context, name, sql string) error {
	if _, err := p.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	return nil
}

// Close releases all pool resources.
//
// Postcondition: The pool and its repositories are unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}
