// Package storetest holds the conformance suite every store backend runs.
//
// Backends call Run from their own tests with a factory returning a fresh,
// migrated, empty store:
//
//	func TestConformance(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
//	}
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/store"
)

// Factory returns an empty, migrated store. It registers its own cleanup.
type Factory func(t *testing.T) store.Store

// base is whole seconds so every backend round-trips it exactly.
var base = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes the full conformance suite against newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("NodeCreateGet", func(t *testing.T) { testNodeCreateGet(t, newStore(t)) })
	t.Run("NodeCreateDuplicate", func(t *testing.T) { testNodeCreateDuplicate(t, newStore(t)) })
	t.Run("NodeGetMissing", func(t *testing.T) { testNodeGetMissing(t, newStore(t)) })
	t.Run("NodeDelete", func(t *testing.T) { testNodeDelete(t, newStore(t)) })
	t.Run("NodeList", func(t *testing.T) { testNodeList(t, newStore(t)) })
	t.Run("FindEligibleEmpty", func(t *testing.T) { testFindEligibleEmpty(t, newStore(t)) })
	t.Run("FindEligibleLeastRecent", func(t *testing.T) { testFindEligibleLeastRecent(t, newStore(t)) })
	t.Run("TryAcquireExclusive", func(t *testing.T) { testTryAcquireExclusive(t, newStore(t)) })
	t.Run("TryAcquireExpired", func(t *testing.T) { testTryAcquireExpired(t, newStore(t)) })
	t.Run("TryAcquireIneligible", func(t *testing.T) { testTryAcquireIneligible(t, newStore(t)) })
	t.Run("TryAcquireConcurrent", func(t *testing.T) { testTryAcquireConcurrent(t, newStore(t)) })
	t.Run("ReleaseOwnedBy", func(t *testing.T) { testReleaseOwnedBy(t, newStore(t)) })
}

// Seed creates count nodes whose activity timestamps increase by one minute
// in slice order, so nodes[0] is the least recently active.
func Seed(t *testing.T, s store.Store, consensus string, count int) []*node.Node {
	t.Helper()
	nodes := make([]*node.Node, count)
	for i := range count {
		nodes[i] = &node.Node{
			Entity: ledgerwork.Entity{
				CreatedAt: base.Add(time.Duration(i) * time.Second),
				UpdatedAt: base.Add(time.Duration(i) * time.Minute),
			},
			ID:        id.NewNodeID(),
			Ledger:    "ledger_main",
			Consensus: consensus,
		}
		if err := s.CreateNode(context.Background(), nodes[i]); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}
	return nodes
}

func testNodeCreateGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	n := &node.Node{
		Entity:    ledgerwork.Entity{CreatedAt: base, UpdatedAt: base},
		ID:        id.NewNodeID(),
		Ledger:    "ledger_a",
		Owner:     "did:v1:alice",
		Consensus: "continuity",
		Storage:   "mongodb",
	}
	if err := s.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	got, err := s.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.ID.String() != n.ID.String() {
		t.Errorf("ID = %s, want %s", got.ID, n.ID)
	}
	if got.Ledger != "ledger_a" || got.Owner != "did:v1:alice" || got.Consensus != "continuity" || got.Storage != "mongodb" {
		t.Errorf("unexpected fields: %+v", got)
	}
	if !got.UpdatedAt.Equal(base) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, base)
	}
	if got.Lease != nil {
		t.Errorf("Lease = %+v, want nil", got.Lease)
	}
	if got.Deleted() {
		t.Error("new node reported deleted")
	}
}

func testNodeCreateDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	n := &node.Node{ID: id.NewNodeID(), Ledger: "l", Consensus: "c"}
	if err := s.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	err := s.CreateNode(ctx, n)
	if !errors.Is(err, ledgerwork.ErrNodeAlreadyExists) {
		t.Fatalf("expected ErrNodeAlreadyExists, got %v", err)
	}
}

func testNodeGetMissing(t *testing.T, s store.Store) {
	_, err := s.GetNode(context.Background(), id.NewNodeID())
	if !errors.Is(err, ledgerwork.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func testNodeDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "continuity", 1)

	if err := s.DeleteNode(ctx, nodes[0].ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	got, err := s.GetNode(ctx, nodes[0].ID)
	if err != nil {
		t.Fatalf("GetNode after delete: %v", err)
	}
	if !got.Deleted() {
		t.Error("expected tombstone after delete")
	}

	if err := s.DeleteNode(ctx, nodes[0].ID); !errors.Is(err, ledgerwork.ErrNodeDeleted) {
		t.Errorf("second delete: expected ErrNodeDeleted, got %v", err)
	}
	if err := s.DeleteNode(ctx, id.NewNodeID()); !errors.Is(err, ledgerwork.ErrNodeNotFound) {
		t.Errorf("missing delete: expected ErrNodeNotFound, got %v", err)
	}

	n, err := s.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if n != nil {
		t.Errorf("deleted node %s reported eligible", n.ID)
	}
}

func testNodeList(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "continuity", 4)
	other := &node.Node{
		Entity:    ledgerwork.Entity{CreatedAt: base.Add(time.Hour), UpdatedAt: base},
		ID:        id.NewNodeID(),
		Ledger:    "ledger_other",
		Consensus: "continuity",
	}
	if err := s.CreateNode(ctx, other); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := s.DeleteNode(ctx, nodes[3].ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}

	all, err := s.ListNodes(ctx, node.ListOpts{})
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("ListNodes returned %d nodes, want 4", len(all))
	}
	for i, want := range []*node.Node{nodes[0], nodes[1], nodes[2], other} {
		if all[i].ID.String() != want.ID.String() {
			t.Errorf("all[%d] = %s, want %s", i, all[i].ID, want.ID)
		}
	}

	withDeleted, err := s.ListNodes(ctx, node.ListOpts{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("ListNodes IncludeDeleted: %v", err)
	}
	if len(withDeleted) != 5 {
		t.Errorf("IncludeDeleted returned %d nodes, want 5", len(withDeleted))
	}

	byLedger, err := s.ListNodes(ctx, node.ListOpts{Ledger: "ledger_other"})
	if err != nil {
		t.Fatalf("ListNodes Ledger: %v", err)
	}
	if len(byLedger) != 1 || byLedger[0].ID.String() != other.ID.String() {
		t.Errorf("Ledger filter returned %d nodes", len(byLedger))
	}

	page, err := s.ListNodes(ctx, node.ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListNodes page: %v", err)
	}
	if len(page) != 2 || page[0].ID.String() != nodes[1].ID.String() {
		t.Errorf("page = %d nodes, want nodes[1..2]", len(page))
	}
}

func testFindEligibleEmpty(t *testing.T, s store.Store) {
	n, err := s.FindEligible(context.Background())
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if n != nil {
		t.Fatalf("expected nil from an empty store, got %s", n.ID)
	}
}

func testFindEligibleLeastRecent(t *testing.T, s store.Store) {
	ctx := context.Background()
	// Create in reverse so insertion order cannot explain the result.
	nodes := make([]*node.Node, 3)
	for i := 2; i >= 0; i-- {
		nodes[i] = &node.Node{
			Entity:    ledgerwork.Entity{CreatedAt: base, UpdatedAt: base.Add(time.Duration(i) * time.Minute)},
			ID:        id.NewNodeID(),
			Ledger:    "l",
			Consensus: "c",
		}
		if err := s.CreateNode(ctx, nodes[i]); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}

	n, err := s.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if n == nil || n.ID.String() != nodes[0].ID.String() {
		t.Fatalf("FindEligible = %v, want least recently active %s", n, nodes[0].ID)
	}
}

func testTryAcquireExclusive(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "c", 2)
	ownerA, ownerB := id.NewPassID(), id.NewPassID()
	expires := time.Now().UTC().Add(time.Minute)

	ok, err := s.TryAcquire(ctx, nodes[0].ID, ownerA, expires)
	if err != nil || !ok {
		t.Fatalf("TryAcquire A = %v, %v; want true", ok, err)
	}
	ok, err = s.TryAcquire(ctx, nodes[0].ID, ownerB, expires)
	if err != nil {
		t.Fatalf("TryAcquire B: %v", err)
	}
	if ok {
		t.Fatal("second owner acquired a live lease")
	}

	got, err := s.GetNode(ctx, nodes[0].ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Lease == nil || got.Lease.OwnerID.String() != ownerA.String() {
		t.Fatalf("lease = %+v, want owner %s", got.Lease, ownerA)
	}
	if !got.UpdatedAt.After(nodes[0].UpdatedAt) {
		t.Error("acquire did not refresh the activity timestamp")
	}

	n, err := s.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if n == nil || n.ID.String() != nodes[1].ID.String() {
		t.Fatalf("FindEligible = %v, want the unleased node %s", n, nodes[1].ID)
	}
}

func testTryAcquireExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "c", 1)
	crashed := id.NewPassID()

	ok, err := s.TryAcquire(ctx, nodes[0].ID, crashed, time.Now().UTC().Add(-time.Second))
	if err != nil || !ok {
		t.Fatalf("TryAcquire crashed = %v, %v", ok, err)
	}

	n, err := s.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if n == nil {
		t.Fatal("node with an expired lease is not eligible")
	}

	next := id.NewPassID()
	ok, err = s.TryAcquire(ctx, nodes[0].ID, next, time.Now().UTC().Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("TryAcquire over expired lease = %v, %v", ok, err)
	}

	// The crashed owner's cleanup must not touch the superseding lease.
	released, err := s.ReleaseOwnedBy(ctx, crashed)
	if err != nil {
		t.Fatalf("ReleaseOwnedBy: %v", err)
	}
	if released != 0 {
		t.Errorf("released = %d, want 0", released)
	}
	got, _ := s.GetNode(ctx, nodes[0].ID)
	if got.Lease == nil || got.Lease.OwnerID.String() != next.String() {
		t.Errorf("lease = %+v, want owner %s", got.Lease, next)
	}
}

func testTryAcquireIneligible(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "c", 1)
	if err := s.DeleteNode(ctx, nodes[0].ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	expires := time.Now().UTC().Add(time.Minute)

	ok, err := s.TryAcquire(ctx, nodes[0].ID, id.NewPassID(), expires)
	if err != nil {
		t.Fatalf("TryAcquire deleted: %v", err)
	}
	if ok {
		t.Error("acquired a deleted node")
	}

	ok, err = s.TryAcquire(ctx, id.NewNodeID(), id.NewPassID(), expires)
	if err != nil {
		t.Fatalf("TryAcquire missing: %v", err)
	}
	if ok {
		t.Error("acquired a missing node")
	}
}

func testTryAcquireConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "c", 1)
	expires := time.Now().UTC().Add(time.Minute)

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	start := make(chan struct{})
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.TryAcquire(ctx, nodes[0].ID, id.NewPassID(), expires)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			if ok {
				wins++
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("TryAcquire errors: %v", errors.Join(errs...))
	}
	if wins != 1 {
		t.Fatalf("%d racers acquired the lease, want exactly 1", wins)
	}
}

func testReleaseOwnedBy(t *testing.T, s store.Store) {
	ctx := context.Background()
	nodes := Seed(t, s, "c", 3)
	owner, other := id.NewPassID(), id.NewPassID()
	expires := time.Now().UTC().Add(time.Minute)

	for _, n := range nodes[:2] {
		if ok, err := s.TryAcquire(ctx, n.ID, owner, expires); err != nil || !ok {
			t.Fatalf("TryAcquire: %v, %v", ok, err)
		}
	}
	if ok, err := s.TryAcquire(ctx, nodes[2].ID, other, expires); err != nil || !ok {
		t.Fatalf("TryAcquire other: %v, %v", ok, err)
	}
	before, _ := s.GetNode(ctx, nodes[0].ID)

	released, err := s.ReleaseOwnedBy(ctx, owner)
	if err != nil {
		t.Fatalf("ReleaseOwnedBy: %v", err)
	}
	if released != 2 {
		t.Errorf("released = %d, want 2", released)
	}

	for _, n := range nodes[:2] {
		got, _ := s.GetNode(ctx, n.ID)
		if got.Lease != nil {
			t.Errorf("node %s still leased", n.ID)
		}
	}
	after, _ := s.GetNode(ctx, nodes[0].ID)
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Error("release moved the activity timestamp backwards")
	}
	kept, _ := s.GetNode(ctx, nodes[2].ID)
	if kept.Lease == nil || kept.Lease.OwnerID.String() != other.String() {
		t.Errorf("other owner's lease was touched: %+v", kept.Lease)
	}

	again, err := s.ReleaseOwnedBy(ctx, owner)
	if err != nil {
		t.Fatalf("second ReleaseOwnedBy: %v", err)
	}
	if again != 0 {
		t.Errorf("second release = %d, want 0", again)
	}
}
