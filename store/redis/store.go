package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
)

// Compile-time interface checks.
var (
	_ node.Store  = (*Store)(nil)
	_ lease.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithKeyPrefix namespaces every key the store writes. The prefix is
// wrapped in a hash tag unless it already contains one.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithClock overrides the clock used for expiry checks and activity
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client goredis.Cmdable
	closer io.Closer
	logger *slog.Logger
	prefix string
	now    func() time.Time
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client: client,
		logger: slog.Default(),
		prefix: defaultKeyPrefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	s.prefix = hashTagged(s.prefix)
	return s
}

// Open connects to a redis:// URL. The returned store owns the client and
// closes it on Close().
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	clientOpts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/redis: parse url: %w", err)
	}
	client := goredis.NewClient(clientOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ledgerwork/redis: ping: %w", err)
	}
	s := New(client, opts...)
	s.closer = client
	return s, nil
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.Cmdable { return s.client }

// Migrate preloads the Lua scripts. Redis needs no schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, script := range []*goredis.Script{createNodeScript, findEligibleScript, acquireScript, releaseScript, deleteScript} {
		if err := script.Load(ctx, s.client).Err(); err != nil {
			return fmt.Errorf("ledgerwork/redis: load script: %w", err)
		}
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client if the store owns it.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
