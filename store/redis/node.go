package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// CreateNode stores the node as a Hash and indexes it. Zero timestamps are
// stamped with the store clock.
func (s *Store) CreateNode(ctx context.Context, n *node.Node) error {
	cp := n.Clone()
	t := s.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = t
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = t
	}

	nID := cp.ID.String()
	live, ownerSet, leaseExpiry := "1", "", ""
	if cp.Deleted() {
		live = "0"
	}
	if cp.Lease != nil {
		ownerSet = s.ownerKey(cp.Lease.OwnerID.String())
		leaseExpiry = strconv.FormatInt(cp.Lease.ExpiresAt.UnixMilli(), 10)
	}

	args := []any{nID, cp.CreatedAt.UnixMilli(), cp.UpdatedAt.UnixMilli(), live, ownerSet, leaseExpiry}
	args = append(args, nodeToFields(cp)...)

	created, err := createNodeScript.Run(ctx, s.client,
		[]string{s.nodeKey(nID), s.nodeIDsKey(), s.freeKey(), s.leasedKey()},
		args...,
	).Int64()
	if err != nil {
		return fmt.Errorf("ledgerwork/redis: create node: %w", err)
	}
	if created == 0 {
		return ledgerwork.ErrNodeAlreadyExists
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *Store) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	return s.getNodeByKey(ctx, s.nodeKey(nodeID.String()))
}

// DeleteNode tombstones a node.
func (s *Store) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	nID := nodeID.String()
	res, err := deleteScript.Run(ctx, s.client,
		[]string{s.nodeKey(nID), s.freeKey(), s.leasedKey()},
		nID, s.now().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("ledgerwork/redis: delete node: %w", err)
	}
	switch res {
	case -1:
		return ledgerwork.ErrNodeNotFound
	case 0:
		return ledgerwork.ErrNodeDeleted
	}
	return nil
}

// ListNodes returns nodes ordered by creation time.
func (s *Store) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	ids, err := s.client.ZRange(ctx, s.nodeIDsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/redis: list node ids: %w", err)
	}

	nodes := make([]*node.Node, 0, len(ids))
	for _, nID := range ids {
		n, getErr := s.getNodeByKey(ctx, s.nodeKey(nID))
		if getErr != nil {
			return nil, getErr
		}
		if !opts.IncludeDeleted && n.Deleted() {
			continue
		}
		if opts.Ledger != "" && n.Ledger != opts.Ledger {
			continue
		}
		nodes = append(nodes, n)
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(nodes) {
			return nil, nil
		}
		nodes = nodes[opts.Offset:]
	}
	if opts.Limit > 0 && len(nodes) > opts.Limit {
		nodes = nodes[:opts.Limit]
	}
	return nodes, nil
}

func (s *Store) getNodeByKey(ctx context.Context, key string) (*node.Node, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/redis: get node: %w", err)
	}
	if len(vals) == 0 {
		return nil, ledgerwork.ErrNodeNotFound
	}
	return mapToNode(vals)
}
