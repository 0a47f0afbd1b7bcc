// Package main applies the SQL migrations under migrations/ to the configured
// database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/config"
	"github.com/cory-johannsen/critterbound/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "file://migrations", "migration source URL")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*source, cfg.Database.DSN(), *direction, *steps, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	logger.Info("migration complete", zap.Duration("elapsed", time.Since(start)))
}

// run migrates dsn in direction. A steps value of zero applies every pending
// migration.
func run(source, dsn, direction string, steps int, logger *zap.Logger) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("invalid direction %q: must be 'up' or 'down'", direction)
	}
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case steps > 0 && direction == "up":
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case direction == "up":
		err = m.Up()
	default:
		err = m.Down()
	}
	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		return err
	}

	version, dirty, _ := m.Version()
	logger.Info("schema version",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("changed", !noChange),
	)
	return nil
}
