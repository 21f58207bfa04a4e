// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"intekcms/internal/database"
	"intekcms/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "intekcms")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "intekcms")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testPool connects to the test database and runs migrations. If the
// database is unavailable, the test is skipped.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := database.Connect(context.Background(), testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(pool); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// uniqueTitle returns a title no other test run will collide with.
func uniqueTitle(prefix string) string {
	return prefix + " " + uuid.NewString()[:8]
}

// createCategory inserts a category and removes it when the test ends.
func createCategory(t *testing.T, s *CategoryStore, c *models.Category) *models.Category {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), c))
	t.Cleanup(func() { _ = s.Delete(context.Background(), c.ID) })
	return c
}

// cleanLegacyEvents removes legacy rows by id. Call in t.Cleanup().
func cleanLegacyEvents(t *testing.T, pool *pgxpool.Pool, ids ...string) {
	t.Helper()
	for _, id := range ids {
		pool.Exec(context.Background(), "DELETE FROM legacy_events WHERE id = $1", id)
	}
}
