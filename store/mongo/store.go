package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
)

// Collection name constants.
const (
	colNodes = "ledgerwork_nodes"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ node.Store  = (*Store)(nil)
	_ lease.Store = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store.
//
// Stores built with New do not own the database handle and never close it.
// Stores built with Open own their client and disconnect it on Close.
type Store struct {
	db     *mongod.Database
	client *mongod.Client
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

// New creates a MongoDB store on db. The caller owns the client lifecycle;
// the Store will not disconnect it on Close().
func New(db *mongod.Database, opts ...Option) *Store {
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

// Open connects to uri and returns a store on the named database. The store
// owns the client and disconnects it on Close().
func Open(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	client, err := mongod.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ledgerwork/mongo: ping: %w", err)
	}
	s := New(client.Database(database), opts...)
	s.client = client
	return s, nil
}

// DB returns the underlying database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates the indexes for all ledgerwork collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ledgerwork/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client if the store owns it.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colNodes: {
			// Eligibility index: live nodes by least recent activity.
			{
				Keys: bson.D{
					{Key: "deleted_at", Value: 1},
					{Key: "updated_at", Value: 1},
				},
				Options: options.Index().SetName("eligible_lru"),
			},
			// Release index.
			{
				Keys:    bson.D{{Key: "lease.owner_id", Value: 1}},
				Options: options.Index().SetName("lease_owner").SetSparse(true),
			},
			// Listing index.
			{
				Keys: bson.D{
					{Key: "ledger", Value: 1},
					{Key: "created_at", Value: 1},
				},
				Options: options.Index().SetName("ledger_created"),
			},
		},
	}
}
