package bunstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun/dialect"

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

	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return ledgerwork.ErrNodeAlreadyExists
		}
		return fmt.Errorf("ledgerwork/bun: create node: %w", err)
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *Store) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	m := new(nodeModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", nodeID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgerwork.ErrNodeNotFound
		}
		return nil, fmt.Errorf("ledgerwork/bun: get node: %w", err)
	}
	return fromNodeModel(m)
}

// DeleteNode tombstones a node.
func (s *Store) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	t := s.now()
	res, err := s.db.NewUpdate().
		TableExpr("ledgerwork_nodes").
		Set("deleted_at = ?", t).
		Set("updated_at = ?", t).
		Where("id = ?", nodeID.String()).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ledgerwork/bun: delete node: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 1 {
		return nil
	}

	exists, err := s.db.NewSelect().
		TableExpr("ledgerwork_nodes").
		Where("id = ?", nodeID.String()).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("ledgerwork/bun: check node exists: %w", err)
	}
	if !exists {
		return ledgerwork.ErrNodeNotFound
	}
	return ledgerwork.ErrNodeDeleted
}

// ListNodes returns nodes ordered by creation time.
func (s *Store) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	var models []nodeModel
	q := s.db.NewSelect().Model(&models)

	if !opts.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if opts.Ledger != "" {
		q = q.Where("ledger = ?", opts.Ledger)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
		if opts.Limit <= 0 && s.db.Dialect().Name() == dialect.SQLite {
			q = q.Limit(-1)
		}
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("ledgerwork/bun: list nodes: %w", err)
	}

	nodes := make([]*node.Node, 0, len(models))
	for i := range models {
		n, err := fromNodeModel(&models[i])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
