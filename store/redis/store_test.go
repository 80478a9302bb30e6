//go:build integration

package redis_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/store"
	redisstore "github.com/xraph/ledgerwork/store/redis"
	"github.com/xraph/ledgerwork/store/storetest"
)

// setupContainer starts one Redis container for the whole test and returns
// its redis:// URL.
func setupContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return url
}

func TestConformance(t *testing.T) {
	url := setupContainer(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		// A key prefix per subtest keeps the suite's cases isolated.
		s, err := redisstore.Open(ctx, url,
			redisstore.WithKeyPrefix("test:"+id.NewPassID().String()+":"),
			redisstore.WithLogger(slog.Default()),
		)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return s
	})
}

// manualClock is a settable clock shared by stores in one test.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func openStore(t *testing.T, url, prefix string, now func() time.Time) *redisstore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := redisstore.Open(ctx, url, redisstore.WithKeyPrefix(prefix), redisstore.WithClock(now))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestFindEligibleWithManyLiveLeases(t *testing.T) {
	url := setupContainer(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &manualClock{now: base}
	s := openStore(t, url, "test:"+id.NewPassID().String()+":", clock.Now)

	const total = 250
	nodes := storetest.Seed(t, s, "continuity", total)

	// Lease all but one node with a live lease.
	holder := id.NewPassID()
	expires := base.Add(time.Minute)
	for _, n := range nodes[:total-1] {
		ok, err := s.TryAcquire(ctx, n.ID, holder, expires)
		if err != nil || !ok {
			t.Fatalf("TryAcquire %s = %v, %v", n.ID, ok, err)
		}
	}

	got, err := s.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if got == nil || got.ID.String() != nodes[total-1].ID.String() {
		t.Fatalf("FindEligible = %v, want the only unleased node %s", got, nodes[total-1].ID)
	}

	// Once the leases expire every node is claimable again, even though
	// more leases went stale than one lookup returns to the free index.
	clock.Set(expires)
	claimer := lease.NewClaimer(s)
	owner := id.NewPassID()
	claimed := map[string]bool{}
	for range 2 * total {
		res, err := claimer.Claim(ctx, owner, expires.Add(time.Minute))
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}
		if res.Outcome == lease.None {
			break
		}
		if res.Outcome == lease.Claimed {
			claimed[res.NodeID.String()] = true
		}
	}
	if len(claimed) != total {
		t.Fatalf("claimed %d nodes after expiry, want %d", len(claimed), total)
	}
}

func TestFindEligibleWithSkewedClocks(t *testing.T) {
	url := setupContainer(t)
	ctx := context.Background()
	prefix := "test:" + id.NewPassID().String() + ":"

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	behind := openStore(t, url, prefix, func() time.Time { return base })
	ahead := openStore(t, url, prefix, func() time.Time { return base.Add(2 * time.Minute) })

	n := &node.Node{ID: id.NewNodeID(), Ledger: "ledger_main", Consensus: "continuity"}
	if err := behind.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if ok, err := behind.TryAcquire(ctx, n.ID, id.NewPassID(), base.Add(time.Minute)); err != nil || !ok {
		t.Fatalf("TryAcquire = %v, %v", ok, err)
	}

	// The lease is stale for the instance whose clock runs ahead.
	got, err := ahead.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible ahead: %v", err)
	}
	if got == nil || got.ID.String() != n.ID.String() {
		t.Fatalf("FindEligible ahead = %v, want %s", got, n.ID)
	}

	// Still live for the instance behind, which must not see it.
	got, err = behind.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible behind: %v", err)
	}
	if got != nil {
		t.Fatalf("FindEligible behind = %s, want nil", got.ID)
	}

	got, err = ahead.FindEligible(ctx)
	if err != nil {
		t.Fatalf("FindEligible ahead again: %v", err)
	}
	if got == nil || got.ID.String() != n.ID.String() {
		t.Fatalf("FindEligible ahead again = %v, want %s", got, n.ID)
	}
}
