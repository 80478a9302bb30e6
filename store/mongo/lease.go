package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// eligibleFilter matches live nodes whose lease is absent or stale at t.
// A null field also matches a missing one.
func eligibleFilter(t time.Time) bson.M {
	return bson.M{
		"deleted_at": nil,
		"$or": []bson.M{
			{"lease": nil},
			{"lease.expires_at": bson.M{"$lte": t}},
		},
	}
}

// FindEligible returns the least recently active claimable node, or nil.
func (s *Store) FindEligible(ctx context.Context) (*node.Node, error) {
	findOpts := options.FindOne().SetSort(bson.D{
		{Key: "updated_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	var m nodeModel
	err := s.db.Collection(colNodes).FindOne(ctx, eligibleFilter(s.now()), findOpts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledgerwork/mongo: find eligible node: %w", err)
	}
	return fromNodeModel(&m)
}

// TryAcquire leases the node to ownerID with a single conditional update.
// The eligibility filter is re-evaluated by the server, so a competing pass
// that got there first makes the match count zero.
func (s *Store) TryAcquire(ctx context.Context, nodeID id.NodeID, ownerID id.PassID, expiresAt time.Time) (bool, error) {
	t := s.now()
	filter := eligibleFilter(t)
	filter["_id"] = nodeID.String()

	update := bson.M{
		"$set": bson.M{
			"lease": leaseModel{
				OwnerID:   ownerID.String(),
				ExpiresAt: expiresAt,
			},
			"updated_at": t,
		},
	}

	res, err := s.db.Collection(colNodes).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("ledgerwork/mongo: acquire lease: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// ReleaseOwnedBy clears every lease held by ownerID, expired or not.
func (s *Store) ReleaseOwnedBy(ctx context.Context, ownerID id.PassID) (int64, error) {
	res, err := s.db.Collection(colNodes).UpdateMany(ctx,
		bson.M{"lease.owner_id": ownerID.String()},
		bson.M{"$set": bson.M{"lease": nil, "updated_at": s.now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("ledgerwork/mongo: release leases: %w", err)
	}
	return res.MatchedCount, nil
}
