package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	_ "github.com/lib/pq"

	"PoolLedger/internal/observability"
	"PoolLedger/internal/persistence"
	"PoolLedger/internal/projection"
)

type config struct {
	PostgresDSN   string `env:"POOL_POSTGRES_DSN" envDefault:"postgres://localhost:5432/poolledger?sslmode=disable"`
	MigrationsDir string `env:"POOL_MIGRATIONS_DIR" envDefault:"migrations"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <up|down>")
		fmt.Println("  up   - apply all pending migrations")
		fmt.Println("  down - roll back the last migration")
		fmt.Println()
		fmt.Println("Environment:")
		fmt.Println("  POOL_POSTGRES_DSN    - Postgres connection string")
		fmt.Println("  POOL_MIGRATIONS_DIR  - path to migrations directory (default: migrations)")
		os.Exit(1)
	}

	logger := observability.NewLogger("migrate")

	cfg, err := env.ParseAs[config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("config parse")
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres open")
	}
	defer db.Close()

	ctx := context.Background()
	migrator := persistence.NewMigrator(db, cfg.MigrationsDir)

	switch os.Args[1] {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrate up")
		}
		logger.Info().Msg("all migrations applied")

	case "down":
		if err := migrator.Down(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrate down")
		}
		logger.Info().Msg("last migration rolled back")

	case "rebuild":
		if err := projection.RebuildProjections(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("rebuild projections")
		}
		logger.Info().Msg("projections rebuilt from event log")

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (use 'up', 'down' or 'rebuild')\n", os.Args[1])
		os.Exit(1)
	}
}
