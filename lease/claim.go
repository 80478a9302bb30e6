package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/ledgerwork/id"
)

// Outcome is the result kind of a claim attempt.
type Outcome int

const (
	// None means no node is eligible anywhere in the store.
	None Outcome = iota
	// Claimed means the lease was acquired.
	Claimed
	// Retry means another pass won the race for the selected node.
	Retry
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case Claimed:
		return "claimed"
	case Retry:
		return "retry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of one claim attempt. NodeID is set only when
// Outcome is Claimed.
type Result struct {
	Outcome Outcome
	NodeID  id.NodeID
}

// Claimer runs the two-step claim protocol against a Store.
type Claimer struct {
	store Store
}

// NewClaimer creates a Claimer.
func NewClaimer(store Store) *Claimer {
	return &Claimer{store: store}
}

// Claim selects the least recently active eligible node and tries to lease
// it to ownerID until expiresAt. A lost race is reported as Retry, not as an
// error; only store failures return an error.
func (c *Claimer) Claim(ctx context.Context, ownerID id.PassID, expiresAt time.Time) (Result, error) {
	n, err := c.store.FindEligible(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("find eligible node: %w", err)
	}
	if n == nil {
		return Result{Outcome: None}, nil
	}

	acquired, err := c.store.TryAcquire(ctx, n.ID, ownerID, expiresAt)
	if err != nil {
		return Result{}, fmt.Errorf("acquire lease on %s: %w", n.ID, err)
	}
	if !acquired {
		return Result{Outcome: Retry}, nil
	}
	return Result{Outcome: Claimed, NodeID: n.ID}, nil
}
