package lease_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/store/memory"
)

// scriptedStore returns canned answers and records calls.
type scriptedStore struct {
	mu       sync.Mutex
	eligible *node.Node
	findErr  error
	acquired bool
	acqErr   error
	acquires []id.PassID
}

func (s *scriptedStore) FindEligible(context.Context) (*node.Node, error) {
	return s.eligible, s.findErr
}

func (s *scriptedStore) TryAcquire(_ context.Context, _ id.NodeID, owner id.PassID, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquires = append(s.acquires, owner)
	return s.acquired, s.acqErr
}

func (s *scriptedStore) ReleaseOwnedBy(context.Context, id.PassID) (int64, error) { return 0, nil }

func TestClaim_Outcomes(t *testing.T) {
	n := &node.Node{ID: id.NewNodeID()}
	storeErr := errors.New("connection reset")

	tests := []struct {
		name    string
		store   *scriptedStore
		want    lease.Outcome
		wantErr bool
	}{
		{"none eligible", &scriptedStore{}, lease.None, false},
		{"claimed", &scriptedStore{eligible: n, acquired: true}, lease.Claimed, false},
		{"lost race", &scriptedStore{eligible: n, acquired: false}, lease.Retry, false},
		{"find error", &scriptedStore{findErr: storeErr}, lease.None, true},
		{"acquire error", &scriptedStore{eligible: n, acqErr: storeErr}, lease.None, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := lease.NewClaimer(tt.store)
			res, err := c.Claim(context.Background(), id.NewPassID(), time.Now().Add(time.Second))
			if tt.wantErr {
				if !errors.Is(err, storeErr) {
					t.Fatalf("expected wrapped store error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", res.Outcome, tt.want)
			}
			if tt.want == lease.Claimed && res.NodeID.String() != n.ID.String() {
				t.Errorf("NodeID = %s, want %s", res.NodeID, n.ID)
			}
		})
	}
}

func TestClaim_NoneDoesNotAcquire(t *testing.T) {
	s := &scriptedStore{}
	_, _ = lease.NewClaimer(s).Claim(context.Background(), id.NewPassID(), time.Now())
	if len(s.acquires) != 0 {
		t.Errorf("expected no acquire attempts, got %d", len(s.acquires))
	}
}

func TestClaim_RacingPassesOneWinner(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.CreateNode(ctx, &node.Node{ID: id.NewNodeID(), Consensus: "continuity"})

	c := lease.NewClaimer(s)
	expires := time.Now().Add(time.Minute)

	results := make(chan lease.Outcome, 8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Claim(ctx, id.NewPassID(), expires)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			results <- res.Outcome
		}()
	}
	wg.Wait()
	close(results)

	claimed := 0
	for o := range results {
		switch o {
		case lease.Claimed:
			claimed++
		case lease.Retry, lease.None:
		default:
			t.Errorf("unexpected outcome %s", o)
		}
	}
	if claimed != 1 {
		t.Errorf("claimed = %d, want 1", claimed)
	}
}

// interleavedStore lets another claimer run once, between this claimer's
// FindEligible and its TryAcquire.
type interleavedStore struct {
	*memory.Store
	once    sync.Once
	between func()
}

func (s *interleavedStore) FindEligible(ctx context.Context) (*node.Node, error) {
	n, err := s.Store.FindEligible(ctx)
	if n != nil {
		s.once.Do(s.between)
	}
	return n, err
}

func TestClaim_LoserOfSingleNodeRetriesThenNone(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	n := &node.Node{ID: id.NewNodeID(), Consensus: "continuity"}
	if err := mem.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	expires := time.Now().Add(time.Minute)

	var first lease.Result
	is := &interleavedStore{Store: mem}
	is.between = func() {
		res, err := lease.NewClaimer(mem).Claim(ctx, id.NewPassID(), expires)
		if err != nil {
			t.Errorf("winner Claim: %v", err)
		}
		first = res
	}
	loser := lease.NewClaimer(is)
	loserID := id.NewPassID()

	res, err := loser.Claim(ctx, loserID, expires)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if first.Outcome != lease.Claimed || first.NodeID.String() != n.ID.String() {
		t.Fatalf("winner = %+v, want claimed %s", first, n.ID)
	}
	if res.Outcome != lease.Retry {
		t.Fatalf("loser first outcome = %s, want retry", res.Outcome)
	}

	res, err = loser.Claim(ctx, loserID, expires)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Outcome != lease.None {
		t.Fatalf("loser second outcome = %s, want none", res.Outcome)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := map[lease.Outcome]string{
		lease.None:       "none",
		lease.Claimed:    "claimed",
		lease.Retry:      "retry",
		lease.Outcome(9): "outcome(9)",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
