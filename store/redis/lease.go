package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// FindEligible returns the least recently active claimable node, or nil.
func (s *Store) FindEligible(ctx context.Context) (*node.Node, error) {
	nID, err := findEligibleScript.Run(ctx, s.client,
		[]string{s.freeKey(), s.leasedKey()},
		s.now().UnixMilli(), s.nodePrefix(), eligibleScanLimit,
	).Text()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledgerwork/redis: find eligible node: %w", err)
	}
	return s.getNodeByKey(ctx, s.nodeKey(nID))
}

// TryAcquire leases the node to ownerID. The eligibility check and the
// write run inside one script, so a competing pass sees the lease.
func (s *Store) TryAcquire(ctx context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error) {
	t := s.now()
	nID, owner := nodeID.String(), ownerID.String()

	acquired, err := acquireScript.Run(ctx, s.client,
		[]string{s.nodeKey(nID), s.freeKey(), s.leasedKey(), s.ownerKey(owner)},
		nID, owner, expiresAt.UnixMilli(), t.UnixMilli(), t.Format(time.RFC3339Nano), s.ownerPrefix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("ledgerwork/redis: acquire lease: %w", err)
	}
	return acquired == 1, nil
}

// ReleaseOwnedBy clears every lease held by ownerID, expired or not.
func (s *Store) ReleaseOwnedBy(ctx context.Context, ownerID id.PassID) (int64, error) {
	t := s.now()
	owner := ownerID.String()

	released, err := releaseScript.Run(ctx, s.client,
		[]string{s.ownerKey(owner), s.freeKey(), s.leasedKey()},
		owner, s.nodePrefix(), t.Format(time.RFC3339Nano), t.UnixMilli(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("ledgerwork/redis: release leases: %w", err)
	}
	return released, nil
}
