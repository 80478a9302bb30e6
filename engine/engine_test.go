package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/engine"
	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
	"github.com/xraph/ledgerwork/session"
	"github.com/xraph/ledgerwork/store/memory"
)

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// recordingPlugin accepts every session, records the node and finishes the
// session right away.
type recordingPlugin struct {
	name string

	mu    sync.Mutex
	nodes []id.NodeID
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) ScheduleWork(_ context.Context, s *session.Session) error {
	s.Start()
	p.mu.Lock()
	p.nodes = append(p.nodes, s.Node.ID)
	p.mu.Unlock()
	s.Finish()
	return nil
}

func (p *recordingPlugin) seen() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.nodes))
	for _, nid := range p.nodes {
		out[nid.String()]++
	}
	return out
}

// shutdownSpy records Shutdown hook calls.
type shutdownSpy struct {
	mu    sync.Mutex
	calls int
}

func (s *shutdownSpy) Name() string { return "shutdown-spy" }

func (s *shutdownSpy) OnShutdown(_ context.Context) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return nil
}

func newInstance(t *testing.T, opts ...ledgerwork.Option) (*ledgerwork.Instance, *memory.Store) {
	t.Helper()
	s := memory.New()
	all := append([]ledgerwork.Option{
		ledgerwork.WithStore(s),
		ledgerwork.WithShutdownGracePeriod(0),
	}, opts...)
	inst, err := ledgerwork.New(all...)
	if err != nil {
		t.Fatalf("ledgerwork.New: %v", err)
	}
	return inst, s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// ──────────────────────────────────────────────────
// End-to-end: CreateNode → trigger → offer
// ──────────────────────────────────────────────────

func TestEngine_EndToEnd_TriggerOffersEveryNode(t *testing.T) {
	inst, _ := newInstance(t,
		ledgerwork.WithConcurrency(2),
		ledgerwork.WithTriggerSchedule("@every 10ms"),
	)
	plugin := &recordingPlugin{name: "continuity"}

	eng, err := engine.Build(inst, engine.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}

	ctx := context.Background()
	var created []*node.Node
	for range 3 {
		n := &node.Node{Ledger: "ledger_main", Consensus: "continuity"}
		if err := eng.CreateNode(ctx, n); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
		if n.ID.IsNil() {
			t.Fatal("CreateNode did not assign an ID")
		}
		created = append(created, n)
	}

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(plugin.seen()) == 3 })

	if err := eng.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	seen := plugin.seen()
	for _, n := range created {
		if seen[n.ID.String()] == 0 {
			t.Errorf("node %s was never offered", n.ID)
		}
	}

	st := eng.Stats()
	if !st.ShuttingDown {
		t.Error("expected ShuttingDown after Shutdown")
	}
	if st.RunningSessions != 0 {
		t.Errorf("running sessions = %d, want 0", st.RunningSessions)
	}
	if st.PassesFired == 0 {
		t.Error("expected the trigger to fire at least once")
	}
	if st.LastPass == nil {
		t.Error("expected a last pass report")
	}
}

// ──────────────────────────────────────────────────
// Manual pass
// ──────────────────────────────────────────────────

func TestEngine_RunPass(t *testing.T) {
	// A schedule far in the future keeps the trigger out of the way.
	inst, s := newInstance(t,
		ledgerwork.WithConcurrency(4),
		ledgerwork.WithTriggerSchedule("@every 1h"),
	)
	plugin := &recordingPlugin{name: "continuity"}

	eng, err := engine.Build(inst, engine.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	ctx := context.Background()
	for range 2 {
		if err := eng.CreateNode(ctx, &node.Node{Ledger: "l", Consensus: "continuity"}); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = eng.Shutdown(ctx) }()

	rep, err := eng.RunPass(ctx)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if rep.Claimed != 2 {
		t.Errorf("claimed = %d, want 2", rep.Claimed)
	}
	if rep.Released != 2 {
		t.Errorf("released = %d, want 2", rep.Released)
	}

	waitFor(t, time.Second, func() bool { return len(plugin.seen()) == 2 })

	nodes, err := s.ListNodes(ctx, node.ListOpts{})
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	for _, n := range nodes {
		if n.Lease != nil {
			t.Errorf("node %s still leased after pass", n.ID)
		}
	}
}

func TestEngine_RunPassDisabled(t *testing.T) {
	inst, _ := newInstance(t, ledgerwork.WithEnabled(false))
	eng, err := engine.Build(inst)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = eng.RunPass(context.Background())
	if !errors.Is(err, ledgerwork.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if eng.Stats().Enabled {
		t.Error("Stats.Enabled = true, want false")
	}
}

func TestEngine_RunPassAfterShutdown(t *testing.T) {
	inst, _ := newInstance(t, ledgerwork.WithTriggerSchedule("@every 1h"))
	spy := &shutdownSpy{}
	eng, err := engine.Build(inst, engine.WithExtension(spy))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := eng.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	_, err = eng.RunPass(ctx)
	if !errors.Is(err, ledgerwork.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}

	spy.mu.Lock()
	defer spy.mu.Unlock()
	if spy.calls != 1 {
		t.Errorf("shutdown hook calls = %d, want 1", spy.calls)
	}
}

// ──────────────────────────────────────────────────
// Shutdown grace period
// ──────────────────────────────────────────────────

func TestEngine_ShutdownHonoursContext(t *testing.T) {
	inst, _ := newInstance(t,
		ledgerwork.WithTriggerSchedule("@every 1h"),
		ledgerwork.WithShutdownGracePeriod(time.Hour),
	)
	eng, err := engine.Build(inst)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := eng.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Shutdown waited %s, expected the context to cut the grace period", elapsed)
	}
}

// ──────────────────────────────────────────────────
// Node API
// ──────────────────────────────────────────────────

func TestEngine_NodeCRUD(t *testing.T) {
	inst, _ := newInstance(t)
	eng, err := engine.Build(inst)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	ctx := context.Background()

	n := &node.Node{Ledger: "ledger_a", Consensus: "continuity", Owner: "alice"}
	if err := eng.CreateNode(ctx, n); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n.CreatedAt.IsZero() {
		t.Error("CreateNode did not stamp CreatedAt")
	}

	got, err := eng.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Owner != "alice" {
		t.Errorf("Owner = %q, want %q", got.Owner, "alice")
	}

	if err := eng.DeleteNode(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	list, err := eng.ListNodes(ctx, node.ListOpts{})
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListNodes returned %d nodes, want 0 after delete", len(list))
	}

	_, err = eng.GetNode(ctx, id.NewNodeID())
	if !errors.Is(err, ledgerwork.ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Observability
// ──────────────────────────────────────────────────

func TestEngine_MeterProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	inst, _ := newInstance(t, ledgerwork.WithTriggerSchedule("@every 1h"))
	plugin := &recordingPlugin{name: "continuity"}
	eng, err := engine.Build(inst, engine.WithPlugin(plugin), engine.WithMeterProvider(mp))
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	ctx := context.Background()
	if err := eng.CreateNode(ctx, &node.Node{Ledger: "l", Consensus: "continuity"}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := eng.RunPass(ctx); err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(plugin.seen()) == 1 })
	if err := eng.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"ledgerwork.pass.completed", "ledgerwork.node.claimed", "ledgerwork.offer.total"} {
		if !names[want] {
			t.Errorf("metric %q not recorded", want)
		}
	}
}

// ──────────────────────────────────────────────────
// Build errors
// ──────────────────────────────────────────────────

func TestEngine_BuildNoStore(t *testing.T) {
	inst, err := ledgerwork.New()
	if err != nil {
		t.Fatalf("ledgerwork.New: %v", err)
	}

	_, err = engine.Build(inst)
	if !errors.Is(err, ledgerwork.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got: %v", err)
	}
}

// badStore only implements Storer but not the node and lease stores.
type badStore struct{}

func (badStore) Migrate(_ context.Context) error { return nil }
func (badStore) Ping(_ context.Context) error    { return nil }
func (badStore) Close() error                    { return nil }

func TestEngine_BuildBadStore(t *testing.T) {
	inst, err := ledgerwork.New(ledgerwork.WithStore(badStore{}))
	if err != nil {
		t.Fatalf("ledgerwork.New: %v", err)
	}

	_, err = engine.Build(inst)
	if err == nil {
		t.Fatal("expected error for store that doesn't implement the lease store")
	}
}

func TestEngine_BuildDuplicatePlugin(t *testing.T) {
	inst, _ := newInstance(t)
	_, err := engine.Build(inst,
		engine.WithPlugin(consensus.Named("continuity")),
		engine.WithPlugin(consensus.Named("continuity")),
	)
	if !errors.Is(err, ledgerwork.ErrDuplicatePlugin) {
		t.Fatalf("expected ErrDuplicatePlugin, got %v", err)
	}
}

func TestEngine_BuildInvalidSchedule(t *testing.T) {
	inst, _ := newInstance(t, ledgerwork.WithTriggerSchedule("every now and then"))
	_, err := engine.Build(inst)
	if !errors.Is(err, ledgerwork.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
