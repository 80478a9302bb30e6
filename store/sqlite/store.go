package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // register the "sqlite" database/sql driver

	"github.com/xraph/ledgerwork/store"
	bunstore "github.com/xraph/ledgerwork/store/bun"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite-backed store. Unlike [bunstore.Store] it owns its
// database handle and closes it on Close.
type Store struct {
	*bunstore.Store
	db *bun.DB
}

// Open opens the SQLite database at dsn and verifies it is reachable.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, dsn string, opts ...bunstore.Option) (*Store, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledgerwork/sqlite: ping: %w", err)
	}

	return &Store{
		Store: bunstore.New(db, opts...),
		db:    db,
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
