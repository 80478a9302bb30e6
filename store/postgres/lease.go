package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// FindEligible returns the least recently active claimable node, or nil.
func (s *Store) FindEligible(ctx context.Context) (*node.Node, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+nodeColumns+`
		FROM ledgerwork_nodes
		WHERE deleted_at IS NULL
		  AND (lease_owner IS NULL OR lease_expires_at <= $1)
		ORDER BY updated_at ASC, id ASC
		LIMIT 1`,
		s.now(),
	)
	n, err := scanNode(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledgerwork/postgres: find eligible node: %w", err)
	}
	return n, nil
}

// TryAcquire leases the node to ownerID. Postgres re-checks the WHERE
// clause after waiting on a concurrent writer's row lock, so only one of
// several racing updates matches.
func (s *Store) TryAcquire(ctx context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error) {
	t := s.now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE ledgerwork_nodes
		SET lease_owner = $2, lease_expires_at = $3, updated_at = $4
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND (lease_owner IS NULL OR lease_expires_at <= $4)`,
		nodeID.String(), ownerID.String(), expiresAt, t,
	)
	if err != nil {
		return false, fmt.Errorf("ledgerwork/postgres: acquire lease: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseOwnedBy clears every lease held by ownerID, expired or not.
func (s *Store) ReleaseOwnedBy(ctx context.Context, ownerID id.PassID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE ledgerwork_nodes
		SET lease_owner = NULL, lease_expires_at = NULL, updated_at = $2
		WHERE lease_owner = $1`,
		ownerID.String(), s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("ledgerwork/postgres: release leases: %w", err)
	}
	return tag.RowsAffected(), nil
}
