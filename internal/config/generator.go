package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"anomaly-engine/internal/env"
)

type GeneratorConfig struct {
	Pool *pgxpool.Pool
	Seed uint64
}

func SetupGeneratorConfig(ctx context.Context) (GeneratorConfig, error) {
	if err := RunMigrations(); err != nil {
		return GeneratorConfig{}, fmt.Errorf("could not run migrations: %w", err)
	}

	pool, err := setupPostgres(ctx)
	if err != nil {
		return GeneratorConfig{}, fmt.Errorf("could not set up Postgres: %w", err)
	}

	return GeneratorConfig{
		Pool: pool,
		Seed: uint64(env.GetEnvInt("GENERATOR_SEED", 123)),
	}, nil
}

// RunMigrations applies the SQL migrations over database/sql; the pgx pool
// is only opened afterwards.
func RunMigrations() error {
	db, err := sql.Open("postgres", PostgresURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migrate driver: %w", err)
	}

	migrationsPath := env.GetEnvString("MIGRATIONS_PATH", "file://migrations")
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
