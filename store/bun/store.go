package bunstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/ledgerwork/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a Bun ORM implementation of store.Store.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the clock used for expiry checks and activity
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Bun store. The caller owns the db lifecycle; Close
// does not close it.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate creates the node table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*nodeModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ledgerwork/bun: create nodes table: %w", err)
	}

	indexes := []struct {
		name    string
		columns []string
		where   string
	}{
		// Eligibility: live nodes in least recently active order.
		{name: "idx_ledgerwork_nodes_eligible", columns: []string{"updated_at", "id"}, where: "deleted_at IS NULL"},
		// Release by pass.
		{name: "idx_ledgerwork_nodes_lease_owner", columns: []string{"lease_owner"}, where: "lease_owner IS NOT NULL"},
		// Listing.
		{name: "idx_ledgerwork_nodes_ledger", columns: []string{"ledger", "created_at"}},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().
			Model((*nodeModel)(nil)).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.where != "" {
			q = q.Where(idx.where)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("ledgerwork/bun: create index %s: %w", idx.name, err)
		}
	}

	s.logger.Debug("bun store migrated", slog.String("dialect", s.db.Dialect().Name().String()))
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
