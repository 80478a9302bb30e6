// Package node defines the ledger node entity, its lease, and the store
// interface for ledger node records.
//
// # Ledger Node
//
// A [Node] is the unit of schedulable consensus work. Records are shared by
// every scheduler instance in the fleet. Fields of note:
//   - LastActivityAt: refreshed on every claim and release; the scheduler
//     always picks the least recently active eligible node first
//   - Lease: optional {OwnerID, ExpiresAt}; OwnerID is the scheduling pass
//     holding the node
//   - Deleted: tombstone; deleted nodes are never eligible
//   - Consensus: name of the consensus plugin that runs work sessions
//
// A node is eligible for claiming when it is not deleted and its lease is
// absent or has expired ([Node.Eligible]).
package node
