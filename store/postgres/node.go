package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

const nodeColumns = `id, ledger, owner, consensus, storage,
	lease_owner, lease_expires_at, deleted_at, created_at, updated_at`

// CreateNode persists a new ledger node. Zero timestamps are stamped with
// the store clock.
func (s *Store) CreateNode(ctx context.Context, n *node.Node) error {
	t := s.now()
	createdAt, updatedAt := n.CreatedAt, n.UpdatedAt
	if createdAt.IsZero() {
		createdAt = t
	}
	if updatedAt.IsZero() {
		updatedAt = t
	}

	var leaseOwner *string
	var leaseExpires *time.Time
	if n.Lease != nil {
		owner := n.Lease.OwnerID.String()
		leaseOwner, leaseExpires = &owner, &n.Lease.ExpiresAt
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledgerwork_nodes (`+nodeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID.String(), n.Ledger, n.Owner, n.Consensus, n.Storage,
		leaseOwner, leaseExpires, n.DeletedAt, createdAt, updatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ledgerwork.ErrNodeAlreadyExists
		}
		return fmt.Errorf("ledgerwork/postgres: create node: %w", err)
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *Store) GetNode(ctx context.Context, nodeID id.NodeID) (*node.Node, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+nodeColumns+` FROM ledgerwork_nodes WHERE id = $1`,
		nodeID.String(),
	)
	n, err := scanNode(row)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgerwork.ErrNodeNotFound
		}
		return nil, fmt.Errorf("ledgerwork/postgres: get node: %w", err)
	}
	return n, nil
}

// DeleteNode tombstones a node.
func (s *Store) DeleteNode(ctx context.Context, nodeID id.NodeID) error {
	t := s.now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE ledgerwork_nodes
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`,
		nodeID.String(), t,
	)
	if err != nil {
		return fmt.Errorf("ledgerwork/postgres: delete node: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledgerwork_nodes WHERE id = $1)`,
		nodeID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ledgerwork/postgres: check node exists: %w", err)
	}
	if !exists {
		return ledgerwork.ErrNodeNotFound
	}
	return ledgerwork.ErrNodeDeleted
}

// ListNodes returns nodes ordered by creation time.
func (s *Store) ListNodes(ctx context.Context, opts node.ListOpts) ([]*node.Node, error) {
	var (
		where []string
		args  []any
	)
	if !opts.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if opts.Ledger != "" {
		args = append(args, opts.Ledger)
		where = append(where, fmt.Sprintf("ledger = $%d", len(args)))
	}

	query := `SELECT ` + nodeColumns + ` FROM ledgerwork_nodes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/postgres: list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*node.Node
	for rows.Next() {
		n, scanErr := scanNode(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("ledgerwork/postgres: list nodes scan: %w", scanErr)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerwork/postgres: list nodes: %w", err)
	}
	return nodes, nil
}

// scanNode reads one row selected with nodeColumns.
func scanNode(row pgx.Row) (*node.Node, error) {
	var (
		rawID        string
		n            node.Node
		leaseOwner   *string
		leaseExpires *time.Time
		deletedAt    *time.Time
	)
	err := row.Scan(
		&rawID, &n.Ledger, &n.Owner, &n.Consensus, &n.Storage,
		&leaseOwner, &leaseExpires, &deletedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ID, err = id.ParseNodeID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse node id %q: %w", rawID, err)
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	if deletedAt != nil {
		t := deletedAt.UTC()
		n.DeletedAt = &t
	}
	if leaseOwner != nil && leaseExpires != nil {
		ownerID, parseErr := id.ParsePassID(*leaseOwner)
		if parseErr != nil {
			return nil, fmt.Errorf("parse lease owner %q: %w", *leaseOwner, parseErr)
		}
		n.Lease = &node.Lease{OwnerID: ownerID, ExpiresAt: leaseExpires.UTC()}
	}
	return &n, nil
}
