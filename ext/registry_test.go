package ext_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
)

// ──────────────────────────────────────────────────
// Test extensions
// ──────────────────────────────────────────────────

// allHooksExt implements every lifecycle hook for testing.
type allHooksExt struct {
	calls []string
}

func (e *allHooksExt) Name() string { return "all-hooks" }

func (e *allHooksExt) OnPassStarted(_ context.Context, _ id.PassID, _ time.Time) error {
	e.calls = append(e.calls, "OnPassStarted")
	return nil
}

func (e *allHooksExt) OnNodeClaimed(_ context.Context, _ id.PassID, _ *node.Node) error {
	e.calls = append(e.calls, "OnNodeClaimed")
	return nil
}

func (e *allHooksExt) OnClaimRetried(_ context.Context, _ id.PassID) error {
	e.calls = append(e.calls, "OnClaimRetried")
	return nil
}

func (e *allHooksExt) OnPassCompleted(_ context.Context, _ id.PassID, _ int, _ int64, _ time.Duration, _ error) error {
	e.calls = append(e.calls, "OnPassCompleted")
	return nil
}

func (e *allHooksExt) OnSessionOffered(_ context.Context, _ *session.Session) error {
	e.calls = append(e.calls, "OnSessionOffered")
	return nil
}

func (e *allHooksExt) OnSessionDeclined(_ context.Context, _ *session.Session, _ error) error {
	e.calls = append(e.calls, "OnSessionDeclined")
	return nil
}

func (e *allHooksExt) OnSessionFinished(_ context.Context, _ *session.Session, _ time.Duration) error {
	e.calls = append(e.calls, "OnSessionFinished")
	return nil
}

func (e *allHooksExt) OnShutdown(_ context.Context) error {
	e.calls = append(e.calls, "OnShutdown")
	return nil
}

// passOnlyExt only implements pass-related hooks.
type passOnlyExt struct {
	calls []string
}

func (e *passOnlyExt) Name() string { return "pass-only" }

func (e *passOnlyExt) OnPassStarted(_ context.Context, _ id.PassID, _ time.Time) error {
	e.calls = append(e.calls, "OnPassStarted")
	return nil
}

func (e *passOnlyExt) OnPassCompleted(_ context.Context, _ id.PassID, _ int, _ int64, _ time.Duration, _ error) error {
	e.calls = append(e.calls, "OnPassCompleted")
	return nil
}

// failingExt returns errors from hooks.
type failingExt struct{}

func (e *failingExt) Name() string { return "failing" }

func (e *failingExt) OnPassStarted(_ context.Context, _ id.PassID, _ time.Time) error {
	return errors.New("boom")
}

func (e *failingExt) OnShutdown(_ context.Context) error {
	return errors.New("shutdown boom")
}

func testSession() *session.Session {
	return session.New(id.NewPassID(), &node.Node{ID: id.NewNodeID(), Consensus: "continuity"}, nil)
}

// ──────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────

func TestRegistry_RegisterDiscoversInterfaces(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	if got := len(r.Extensions()); got != 1 {
		t.Fatalf("expected 1 extension, got %d", got)
	}
	if got := r.Extensions()[0].Name(); got != "all-hooks" {
		t.Fatalf("expected name 'all-hooks', got %q", got)
	}
}

func TestRegistry_EmitFiresOnlyImplementors(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	po := &passOnlyExt{}
	r.Register(all)
	r.Register(po)

	ctx := context.Background()
	passID := id.NewPassID()

	// Both implement OnPassStarted → both called.
	r.EmitPassStarted(ctx, passID, time.Now().Add(time.Second))
	if len(all.calls) != 1 || all.calls[0] != "OnPassStarted" {
		t.Fatalf("all: expected [OnPassStarted], got %v", all.calls)
	}
	if len(po.calls) != 1 || po.calls[0] != "OnPassStarted" {
		t.Fatalf("po: expected [OnPassStarted], got %v", po.calls)
	}

	// Only all implements OnNodeClaimed → po not called.
	r.EmitNodeClaimed(ctx, passID, &node.Node{ID: id.NewNodeID()})
	if len(all.calls) != 2 || all.calls[1] != "OnNodeClaimed" {
		t.Fatalf("all: expected OnNodeClaimed as 2nd, got %v", all.calls)
	}
	if len(po.calls) != 1 {
		t.Fatalf("po: should still have 1 call, got %v", po.calls)
	}
}

func TestRegistry_AllPassHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	passID := id.NewPassID()

	r.EmitPassStarted(ctx, passID, time.Now())
	r.EmitNodeClaimed(ctx, passID, &node.Node{})
	r.EmitClaimRetried(ctx, passID)
	r.EmitPassCompleted(ctx, passID, 1, 1, time.Millisecond, nil)

	expected := []string{"OnPassStarted", "OnNodeClaimed", "OnClaimRetried", "OnPassCompleted"}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_AllSessionHooksFire(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	all := &allHooksExt{}
	r.Register(all)

	ctx := context.Background()
	s := testSession()

	r.EmitSessionOffered(ctx, s)
	r.EmitSessionDeclined(ctx, s, errors.New("declined"))
	r.EmitSessionFinished(ctx, s, time.Second)
	r.EmitShutdown(ctx)

	expected := []string{"OnSessionOffered", "OnSessionDeclined", "OnSessionFinished", "OnShutdown"}
	if len(all.calls) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(all.calls), all.calls)
	}
	for i, want := range expected {
		if all.calls[i] != want {
			t.Errorf("call[%d] = %q, want %q", i, all.calls[i], want)
		}
	}
}

func TestRegistry_HookErrorsLoggedNotPropagated(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	failing := &failingExt{}
	all := &allHooksExt{}

	// Register failing first, then all-hooks. Both should be called.
	r.Register(failing)
	r.Register(all)

	ctx := context.Background()

	// No panic, no error propagation. allHooksExt should still fire.
	r.EmitPassStarted(ctx, id.NewPassID(), time.Now())
	r.EmitShutdown(ctx)

	if len(all.calls) != 2 || all.calls[0] != "OnPassStarted" || all.calls[1] != "OnShutdown" {
		t.Fatalf("all: expected [OnPassStarted OnShutdown] despite failing ext, got %v", all.calls)
	}
}

func TestRegistry_EmptyRegistryNoOp(_ *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ctx := context.Background()
	s := testSession()

	// None of these should panic or error.
	r.EmitPassStarted(ctx, id.NewPassID(), time.Now())
	r.EmitNodeClaimed(ctx, id.NewPassID(), &node.Node{})
	r.EmitClaimRetried(ctx, id.NewPassID())
	r.EmitPassCompleted(ctx, id.NewPassID(), 0, 0, 0, errors.New("x"))
	r.EmitSessionOffered(ctx, s)
	r.EmitSessionDeclined(ctx, s, nil)
	r.EmitSessionFinished(ctx, s, time.Second)
	r.EmitShutdown(ctx)
}

func TestRegistry_MultipleExtensionsOrderPreserved(t *testing.T) {
	r := ext.NewRegistry(slog.Default())
	ext1 := &allHooksExt{}
	ext2 := &allHooksExt{}
	r.Register(ext1)
	r.Register(ext2)

	r.EmitShutdown(context.Background())

	if len(ext1.calls) != 1 {
		t.Errorf("ext1: expected 1 call, got %d", len(ext1.calls))
	}
	if len(ext2.calls) != 1 {
		t.Errorf("ext2: expected 1 call, got %d", len(ext2.calls))
	}
}
