// Package lease implements the claim protocol that lets independent
// scheduler instances share ledger nodes without a coordinator.
//
// The store is the only mutual exclusion primitive. [Store.TryAcquire] must
// be one indivisible conditional update ("set the lease if the node is not
// deleted and its lease is absent or expired"), never a read followed by a
// write. [Claimer.Claim] pairs it with a plain read of the least recently
// active eligible node; the read is racy and a lost race surfaces as
// [Retry], which callers simply try again.
package lease
