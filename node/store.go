package node

import (
	"context"

	"github.com/xraph/ledgerwork/id"
)

// ListOpts controls pagination and filtering for node list queries.
type ListOpts struct {
	// Limit is the maximum number of nodes to return. Zero means no limit.
	Limit int
	// Offset is the number of nodes to skip.
	Offset int
	// Ledger filters by ledger configuration id. Empty means all ledgers.
	Ledger string
	// IncludeDeleted also returns tombstoned nodes.
	IncludeDeleted bool
}

// Store defines the persistence contract for ledger node records.
type Store interface {
	// CreateNode persists a new ledger node.
	CreateNode(ctx context.Context, n *Node) error

	// GetNode retrieves a node by ID. Tombstoned nodes are returned with
	// DeletedAt set.
	GetNode(ctx context.Context, nodeID id.NodeID) (*Node, error)

	// DeleteNode marks a node deleted. The record is kept so that no pass
	// ever claims it again.
	DeleteNode(ctx context.Context, nodeID id.NodeID) error

	// ListNodes returns nodes ordered by creation time.
	ListNodes(ctx context.Context, opts ListOpts) ([]*Node, error)
}
