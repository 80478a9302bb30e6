package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// ── Node model ────────────────────────────────────────────────────

type leaseModel struct {
	OwnerID   string    `bson:"owner_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type nodeModel struct {
	ID        string      `bson:"_id"`
	Ledger    string      `bson:"ledger"`
	Owner     string      `bson:"owner"`
	Consensus string      `bson:"consensus"`
	Storage   string      `bson:"storage"`
	Lease     *leaseModel `bson:"lease"`
	DeletedAt *time.Time  `bson:"deleted_at"`
	CreatedAt time.Time   `bson:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

func toNodeModel(n *node.Node) *nodeModel {
	m := &nodeModel{
		ID:        n.ID.String(),
		Ledger:    n.Ledger,
		Owner:     n.Owner,
		Consensus: n.Consensus,
		Storage:   n.Storage,
		DeletedAt: n.DeletedAt,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
	if n.Lease != nil {
		m.Lease = &leaseModel{
			OwnerID:   n.Lease.OwnerID.String(),
			ExpiresAt: n.Lease.ExpiresAt,
		}
	}
	return m
}

func fromNodeModel(m *nodeModel) (*node.Node, error) {
	nodeID, err := id.ParseNodeID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/mongo: parse node id %q: %w", m.ID, err)
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
	if m.Lease != nil {
		ownerID, err := id.ParsePassID(m.Lease.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("ledgerwork/mongo: parse lease owner %q: %w", m.Lease.OwnerID, err)
		}
		n.Lease = &node.Lease{OwnerID: ownerID, ExpiresAt: m.Lease.ExpiresAt.UTC()}
	}
	return n, nil
}
