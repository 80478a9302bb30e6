package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// ── Node model ────────────────────────────────────────────────────

type nodeModel struct {
	bun.BaseModel `bun:"table:ledgerwork_nodes,alias:n"`

	ID             string     `bun:"id,pk"`
	Ledger         string     `bun:"ledger,notnull"`
	Owner          string     `bun:"owner,notnull"`
	Consensus      string     `bun:"consensus,notnull"`
	Storage        string     `bun:"storage,notnull"`
	LeaseOwner     *string    `bun:"lease_owner"`
	LeaseExpiresAt *time.Time `bun:"lease_expires_at"`
	DeletedAt      *time.Time `bun:"deleted_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
}

func toNodeModel(n *node.Node) *nodeModel {
	m := &nodeModel{
		ID:        n.ID.String(),
		Ledger:    n.Ledger,
		Owner:     n.Owner,
		Consensus: n.Consensus,
		Storage:   n.Storage,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	}
	// SQLite compares timestamps as text, so everything is stored in UTC.
	if n.DeletedAt != nil {
		t := n.DeletedAt.UTC()
		m.DeletedAt = &t
	}
	if n.Lease != nil {
		owner := n.Lease.OwnerID.String()
		expires := n.Lease.ExpiresAt.UTC()
		m.LeaseOwner, m.LeaseExpiresAt = &owner, &expires
	}
	return m
}

func fromNodeModel(m *nodeModel) (*node.Node, error) {
	nodeID, err := id.ParseNodeID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/bun: parse node id %q: %w", m.ID, err)
	}

	n := &node.Node{
		Entity: ledgerwork.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:        nodeID,
		Ledger:    m.Ledger,
		Owner:     m.Owner,
		Consensus: m.Consensus,
		Storage:   m.Storage,
	}
	if m.DeletedAt != nil {
		t := m.DeletedAt.UTC()
		n.DeletedAt = &t
	}
	if m.LeaseOwner != nil && m.LeaseExpiresAt != nil {
		ownerID, err := id.ParsePassID(*m.LeaseOwner)
		if err != nil {
			return nil, fmt.Errorf("ledgerwork/bun: parse lease owner %q: %w", *m.LeaseOwner, err)
		}
		n.Lease = &node.Lease{OwnerID: ownerID, ExpiresAt: m.LeaseExpiresAt.UTC()}
	}
	return n, nil
}
