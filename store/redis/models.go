package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// nodeToFields flattens a node into hash field/value pairs.
func nodeToFields(n *node.Node) []any {
	fields := []any{
		"id", n.ID.String(),
		"ledger", n.Ledger,
		"owner", n.Owner,
		"consensus", n.Consensus,
		"storage", n.Storage,
		"created_at", n.CreatedAt.Format(time.RFC3339Nano),
		"updated_at", n.UpdatedAt.Format(time.RFC3339Nano),
		"lease_owner", "",
		"lease_expires_at", "",
		"deleted_at", "",
		"activity_ms", strconv.FormatInt(n.UpdatedAt.UnixMilli(), 10),
	}
	if n.Lease != nil {
		fields[15] = n.Lease.OwnerID.String()
		fields[17] = strconv.FormatInt(n.Lease.ExpiresAt.UnixMilli(), 10)
	}
	if n.DeletedAt != nil {
		fields[19] = n.DeletedAt.Format(time.RFC3339Nano)
	}
	return fields
}

func mapToNode(m map[string]string) (*node.Node, error) {
	nodeID, err := id.ParseNodeID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("ledgerwork/redis: parse node id: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	n := &node.Node{
		Entity: ledgerwork.Entity{
			CreatedAt: createdAt.UTC(),
			UpdatedAt: updatedAt.UTC(),
		},
		ID:        nodeID,
		Ledger:    m["ledger"],
		Owner:     m["owner"],
		Consensus: m["consensus"],
		Storage:   m["storage"],
	}

	if v := m["deleted_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		t = t.UTC()
		n.DeletedAt = &t
	}
	if owner := m["lease_owner"]; owner != "" {
		ownerID, err := id.ParsePassID(owner)
		if err != nil {
			return nil, fmt.Errorf("ledgerwork/redis: parse lease owner: %w", err)
		}
		ms, _ := strconv.ParseInt(m["lease_expires_at"], 10, 64) //nolint:errcheck // best-effort parse from trusted Redis data
		n.Lease = &node.Lease{OwnerID: ownerID, ExpiresAt: time.UnixMilli(ms).UTC()}
	}
	return n, nil
}
