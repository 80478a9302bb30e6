// Package scheduler runs scheduling passes: it claims eligible ledger nodes
// through the lease protocol, offers each claimed node to its consensus
// plugin, and releases every lease the pass took when it ends.
//
// A pass runs until one of these holds:
//
//   - the instance has no free session slot left
//   - the pass deadline (start + TTL) is reached
//   - the instance is shutting down
//   - no eligible node remains
//   - the store returned an error
//
// Whatever ends the pass, ReleaseOwnedBy runs afterwards for the pass owner
// id. Offers never block the pass; they are handed to an [Offerer] (the
// worker pool) and the pass moves on to the next claim.
//
// Only one pass runs at a time per [Scheduler]; an overlapping RunPass
// returns ledgerwork.ErrPassInProgress.
package scheduler
