//go:build integration

package bunstore_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/store"
	bunstore "github.com/xraph/ledgerwork/store/bun"
	"github.com/xraph/ledgerwork/store/storetest"
)

// setupDB creates a Postgres container and returns a Bun handle to it.
func setupDB(t *testing.T) *bun.DB {
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

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConformance(t *testing.T) {
	db := setupDB(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s := bunstore.New(db, bunstore.WithLogger(slog.Default()))
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		if _, err := db.NewTruncateTable().Table("ledgerwork_nodes").Exec(ctx); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestListNodesOffsetWithoutLimit(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	s := bunstore.New(db)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	storetest.Seed(t, s, "raft", 4)

	nodes, err := s.ListNodes(ctx, node.ListOpts{Offset: 3})
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
}
