package node

import (
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
)

// Lease is a time-bounded claim on a node held by one scheduling pass.
type Lease struct {
	OwnerID   id.PassID `json:"owner_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease is stale at t. A lease whose expiry
// equals t is already stale.
func (l *Lease) Expired(t time.Time) bool {
	return !l.ExpiresAt.After(t)
}

// Node represents a ledger node record.
type Node struct {
	ledgerwork.Entity

	ID        id.NodeID  `json:"id"`
	Ledger    string     `json:"ledger"`
	Owner     string     `json:"owner,omitempty"`
	Consensus string     `json:"consensus"`
	Storage   string     `json:"storage,omitempty"`
	Lease     *Lease     `json:"lease,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// LastActivityAt is the timestamp used for least-recently-active selection.
func (n *Node) LastActivityAt() time.Time { return n.UpdatedAt }

// Deleted reports whether the node carries a tombstone.
func (n *Node) Deleted() bool { return n.DeletedAt != nil }

// Eligible reports whether a pass may claim the node at t.
func (n *Node) Eligible(t time.Time) bool {
	if n.Deleted() {
		return false
	}
	return n.Lease == nil || n.Lease.Expired(t)
}

// LeasedBy reports whether the node's lease names owner, expired or not.
func (n *Node) LeasedBy(owner id.PassID) bool {
	return n.Lease != nil && n.Lease.OwnerID.String() == owner.String()
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	cp := *n
	if n.Lease != nil {
		l := *n.Lease
		cp.Lease = &l
	}
	if n.DeletedAt != nil {
		t := *n.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}
