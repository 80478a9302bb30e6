package node_test

import (
	"testing"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

func TestNode_Eligible(t *testing.T) {
	now := time.Now().UTC()
	deleted := now.Add(-time.Minute)
	owner := id.NewPassID()

	tests := []struct {
		name string
		node *node.Node
		want bool
	}{
		{"no lease", &node.Node{}, true},
		{"live lease", &node.Node{Lease: &node.Lease{OwnerID: owner, ExpiresAt: now.Add(time.Second)}}, false},
		{"expired lease", &node.Node{Lease: &node.Lease{OwnerID: owner, ExpiresAt: now.Add(-time.Second)}}, true},
		{"lease expiring now", &node.Node{Lease: &node.Lease{OwnerID: owner, ExpiresAt: now}}, true},
		{"deleted", &node.Node{DeletedAt: &deleted}, false},
		{"deleted with expired lease", &node.Node{
			DeletedAt: &deleted,
			Lease:     &node.Lease{OwnerID: owner, ExpiresAt: now.Add(-time.Hour)},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Eligible(now); got != tt.want {
				t.Errorf("Eligible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNode_LeasedBy(t *testing.T) {
	owner := id.NewPassID()
	n := &node.Node{Lease: &node.Lease{OwnerID: owner, ExpiresAt: time.Now().Add(-time.Hour)}}

	if !n.LeasedBy(owner) {
		t.Error("expected node to be leased by owner even after expiry")
	}
	if n.LeasedBy(id.NewPassID()) {
		t.Error("expected node not to be leased by another pass")
	}
	if (&node.Node{}).LeasedBy(owner) {
		t.Error("expected unleased node not to be leased by anyone")
	}
}
