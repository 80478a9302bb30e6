package lease

import (
	"context"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// Store defines the lease operations over ledger node records.
type Store interface {
	// FindEligible returns the non-deleted node with no lease or an expired
	// lease that has the smallest LastActivityAt. Ties are broken by the
	// backend. It returns nil and no error when no node is eligible.
	FindEligible(ctx context.Context) (*node.Node, error)

	// TryAcquire atomically sets the node's lease to {ownerID, expiresAt}
	// and refreshes its activity timestamp, but only if the node is not
	// deleted and its lease is absent or expired. It reports whether exactly
	// one record was updated.
	TryAcquire(ctx context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error)

	// ReleaseOwnedBy clears the lease and refreshes the activity timestamp
	// on every node leased by ownerID, expired or not. It returns the number
	// of nodes released; releasing nothing is not an error.
	ReleaseOwnedBy(ctx context.Context, ownerID id.PassID) (int64, error)
}
