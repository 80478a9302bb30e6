package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// FindEligible returns the least recently active claimable node, or nil.
func (s *Store) FindEligible(ctx context.Context) (*node.Node, error) {
	m := new(nodeModel)
	err := s.db.NewSelect().
		Model(m).
		Where("deleted_at IS NULL").
		Where("(lease_owner IS NULL OR lease_expires_at <= ?)", s.now()).
		OrderExpr("updated_at ASC, id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledgerwork/bun: find eligible node: %w", err)
	}
	return fromNodeModel(m)
}

// TryAcquire leases the node to ownerID with one conditional UPDATE.
func (s *Store) TryAcquire(ctx context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error) {
	t := s.now()
	res, err := s.db.NewUpdate().
		TableExpr("ledgerwork_nodes").
		Set("lease_owner = ?", ownerID.String()).
		Set("lease_expires_at = ?", expiresAt.UTC()).
		Set("updated_at = ?", t).
		Where("id = ?", nodeID.String()).
		Where("deleted_at IS NULL").
		Where("(lease_owner IS NULL OR lease_expires_at <= ?)", t).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("ledgerwork/bun: acquire lease: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows == 1, nil
}

// ReleaseOwnedBy clears every lease held by ownerID, expired or not.
func (s *Store) ReleaseOwnedBy(ctx context.Context, ownerID id.PassID) (int64, error) {
	res, err := s.db.NewUpdate().
		TableExpr("ledgerwork_nodes").
		Set("lease_owner = NULL").
		Set("lease_expires_at = NULL").
		Set("updated_at = ?", s.now()).
		Where("lease_owner = ?", ownerID.String()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledgerwork/bun: release leases: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	return rows, nil
}
