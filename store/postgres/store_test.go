//go:build integration

package postgres_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xraph/ledgerwork/store"
	"github.com/xraph/ledgerwork/store/postgres"
	"github.com/xraph/ledgerwork/store/storetest"
)

// setupContainer starts one Postgres container for the whole test and
// returns its connection string.
func setupContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("ledgerwork_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return connStr
}

func TestConformance(t *testing.T) {
	connStr := setupContainer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.New(ctx, connStr, postgres.WithLogger(slog.Default()))
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })

		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		// Subtests share the database; start each from an empty table.
		if _, err := s.Pool().Exec(ctx, `TRUNCATE ledgerwork_nodes`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestMigrateIdempotent(t *testing.T) {
	connStr := setupContainer(t)
	ctx := context.Background()

	s, err := postgres.New(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	for i := range 2 {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}
}
