package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// CreateNode persists a new ledger node. Zero timestamps are stamped with
// the store clock.
func (s *Store) CreateNode(ctx context.Context, n *node.Node) error {
	m := toNodeModel(n)
	t := s.now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = t
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = t
	}

	_, err := s.db.Collection(colNodes).InsertOne(ctx, m)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return ledgerwork.ErrNodeAlreadyExists
		}
		return fmt.Errorf("ledgerwork/mongo: create node: %w", err)
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *Store) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	var m nodeModel
	err := s.db.Collection(colNodes).FindOne(ctx, bson.M{"_id": nodeID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, ledgerwork.ErrNodeNotFound
		}
		return nil, fmt.Errorf("ledgerwork/mongo: get node: %w", err)
	}
	return fromNodeModel(&m)
}

// DeleteNode tombstones a node.
func (s *Store) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	t := s.now()
	col := s.db.Collection(colNodes)

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": nodeID.String(), "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": t, "updated_at": t}},
	)
	if err != nil {
		return fmt.Errorf("ledgerwork/mongo: delete node: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	count, err := col.CountDocuments(ctx, bson.M{"_id": nodeID.String()})
	if err != nil {
		return fmt.Errorf("ledgerwork/mongo: check node exists: %w", err)
	}
	if count == 0 {
		return ledgerwork.ErrNodeNotFound
	}
	return ledgerwork.ErrNodeDeleted
}

// ListNodes returns nodes ordered by creation time.
func (s *Store) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	filter := bson.M{}
	if !opts.IncludeDeleted {
		filter["deleted_at"] = nil
	}
	if opts.Ledger != "" {
		filter["ledger"] = opts.Ledger
	}

	findOpts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colNodes).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/mongo: list nodes: %w", err)
	}
	defer cursor.Close(ctx)

	var models []nodeModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("ledgerwork/mongo: list nodes decode: %w", err)
	}

	nodes := make([]*node.Node, 0, len(models))
	for i := range models {
		n, convErr := fromNodeModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
