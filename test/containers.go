package test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/joao-fontenele/fooddelivery/internal/telemetry"
)

// StartPostgres runs a throwaway Postgres with the schema migrated and
// returns its connection string. The container is removed when t ends.
func StartPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	ctr, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("fooddelivery"),
		postgres.WithUsername("fooddelivery"),
		postgres.WithPassword("fooddelivery"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	if err := migrateUp(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return dsn
}

func migrateUp(dsn string) error {
	// Resolve migrations/ relative to this file so tests run from any directory.
	_, here, _, _ := runtime.Caller(0)
	source := "file://" + filepath.Join(filepath.Dir(here), "..", "migrations")

	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// StartKafka runs a single-node KRaft broker and returns its addresses.
func StartKafka(ctx context.Context, t *testing.T) []string {
	t.Helper()

	ctr, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("fooddelivery-test"),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start kafka: %v", err)
	}

	brokers, err := ctr.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka brokers: %v", err)
	}

	return brokers
}

// OpenDB opens an instrumented pool against the container and seeds a
// restaurant with two dishes priced 9.99 and 5.00.
func OpenDB(ctx context.Context, connStr string) (*sql.DB, *Seed, error) {
	db, err := telemetry.OpenDB(ctx, connStr, 10)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	seed, err := seedCatalog(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, seed, nil
}

type Seed struct {
	RestaurantID int64
	PizzaID      int64
	DessertID    int64
}

func seedCatalog(ctx context.Context, db *sql.DB) (*Seed, error) {
	seed := &Seed{}

	if err := db.QueryRowContext(ctx, `
		INSERT INTO restaurants (name, address) VALUES ('Luigi''s', '1 Main St') RETURNING id
	`).Scan(&seed.RestaurantID); err != nil {
		return nil, fmt.Errorf("failed to seed restaurant: %w", err)
	}

	if err := db.QueryRowContext(ctx, `
		INSERT INTO dishes (restaurant_id, name, price) VALUES ($1, 'Margherita', 9.99) RETURNING id
	`, seed.RestaurantID).Scan(&seed.PizzaID); err != nil {
		return nil, fmt.Errorf("failed to seed dish: %w", err)
	}

	if err := db.QueryRowContext(ctx, `
		INSERT INTO dishes (restaurant_id, name, price) VALUES ($1, 'Tiramisu', 5.00) RETURNING id
	`, seed.RestaurantID).Scan(&seed.DessertID); err != nil {
		return nil, fmt.Errorf("failed to seed dish: %w", err)
	}

	return seed, nil
}
