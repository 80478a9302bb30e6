// Package ledgerwork schedules consensus work sessions for ledger nodes across
// a fleet of process instances that share one durable node store.
//
// Every instance runs short scheduling passes. A pass repeatedly picks the
// least recently active ledger node that nobody holds, claims it with a
// time-bounded lease using a single atomic conditional update, and offers it
// to the node's consensus plugin. Leases are released when the pass ends and
// expire on their own if an instance crashes.
//
// # Quick Start
//
//	inst, err := ledgerwork.New(
//	    ledgerwork.WithStore(mongoStore),
//	    ledgerwork.WithConcurrency(4),
//	    ledgerwork.WithTTL(30*time.Second),
//	)
//	eng, err := engine.Build(inst, engine.WithPlugin(myConsensus))
//	err = eng.Start(ctx)
//	defer eng.Shutdown(ctx)
//
// # Architecture
//
// Each subsystem (node, lease) defines its own store interface and every
// backend under store/ implements all of them. The store is the only
// authority for mutual exclusion; no in-process lock is involved in claiming.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based
// identifiers.
package ledgerwork
