package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/store"
)

// Ensure Store implements the composite store at compile time.
var _ store.Store = (*Store)(nil)

// Store is a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
type Store struct {
	mu sync.RWMutex

	nodes map[string]*node.Node
	now   func() time.Time
}

// Option configures a memory Store.
type Option func(*Store)

// WithClock overrides the clock used for expiry checks and activity
// timestamps. Tests use it to move time without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes: make(map[string]*node.Node),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Node Store
// ──────────────────────────────────────────────────

// CreateNode persists a new ledger node. Zero timestamps are stamped with
// the store clock.
func (m *Store) CreateNode(_ context.Context, n *node.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := n.ID.String()
	if _, exists := m.nodes[key]; exists {
		return ledgerwork.ErrNodeAlreadyExists
	}
	cp := n.Clone()
	now := m.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	m.nodes[key] = cp
	return nil
}

// GetNode retrieves a node by ID.
func (m *Store) GetNode(_ context.Context, nodeID id.NodeID) (*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[nodeID.String()]
	if !ok {
		return nil, ledgerwork.ErrNodeNotFound
	}
	return n.Clone(), nil
}

// DeleteNode tombstones a node.
func (m *Store) DeleteNode(_ context.Context, nodeID id.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[nodeID.String()]
	if !ok {
		return ledgerwork.ErrNodeNotFound
	}
	if n.Deleted() {
		return ledgerwork.ErrNodeDeleted
	}
	now := m.now()
	n.DeletedAt = &now
	n.UpdatedAt = now
	return nil
}

// ListNodes returns nodes ordered by creation time.
func (m *Store) ListNodes(_ context.Context, opts node.ListOpts) ([]*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*node.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		if !opts.IncludeDeleted && n.Deleted() {
			continue
		}
		if opts.Ledger != "" && n.Ledger != opts.Ledger {
			continue
		}
		result = append(result, n.Clone())
	}

	// Sort by CreatedAt for deterministic output.
	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.Before(result[k].CreatedAt)
		}
		return result[i].ID.String() < result[k].ID.String()
	})

	// Apply offset / limit.
	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// ──────────────────────────────────────────────────
// Lease Store
// ──────────────────────────────────────────────────

// FindEligible returns the least recently active node that is not deleted
// and has no live lease. Ties are broken by node ID.
func (m *Store) FindEligible(_ context.Context) (*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var best *node.Node
	for _, n := range m.nodes {
		if !n.Eligible(now) {
			continue
		}
		if best == nil || lessActive(n, best) {
			best = n
		}
	}
	if best == nil {
		return nil, nil
	}
	return best.Clone(), nil
}

// TryAcquire sets the lease under the store lock, which makes the
// eligibility check and the write one atomic step.
func (m *Store) TryAcquire(_ context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[nodeID.String()]
	if !ok {
		return false, nil
	}
	now := m.now()
	if !n.Eligible(now) {
		return false, nil
	}
	n.Lease = &node.Lease{OwnerID: ownerID, ExpiresAt: expiresAt}
	n.UpdatedAt = now
	return true, nil
}

// ReleaseOwnedBy clears every lease held by ownerID, expired or not.
func (m *Store) ReleaseOwnedBy(_ context.Context, ownerID id.PassID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var released int64
	for _, n := range m.nodes {
		if !n.LeasedBy(ownerID) {
			continue
		}
		n.Lease = nil
		n.UpdatedAt = now
		released++
	}
	return released, nil
}

func lessActive(a, b *node.Node) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
	return a.ID.String() < b.ID.String()
}
