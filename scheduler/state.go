package scheduler

import (
	"sync/atomic"

	"github.com/xraph/ledgerwork/session"
)

// State is the process-wide scheduling state shared by every pass: the
// gate counting sessions in flight and the shutdown flag. It is created once
// per instance and only touched through atomic operations.
type State struct {
	gate         *session.Gate
	shuttingDown atomic.Bool
}

// NewState creates the state for an instance admitting limit concurrent
// work sessions.
func NewState(limit int) *State {
	return &State{gate: session.NewGate(limit)}
}

// Gate returns the session gate.
func (s *State) Gate() *session.Gate { return s.gate }

// BeginShutdown raises the shutdown flag. Passes check it before every
// claim; passes started afterwards do nothing.
func (s *State) BeginShutdown() { s.shuttingDown.Store(true) }

// ShuttingDown reports whether shutdown has begun.
func (s *State) ShuttingDown() bool { return s.shuttingDown.Load() }
