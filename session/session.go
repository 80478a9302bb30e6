// Package session defines the work session handed to consensus plugins and
// the per-instance gate counting sessions in flight.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

// Session is one offer of a claimed ledger node to its consensus plugin.
//
// The plugin calls Start if it accepts the work and Finish exactly when the
// work ends. Finish is guarded: only the first call runs the completion
// callback, so the gate is released exactly once whatever the plugin does.
type Session struct {
	ID        id.SessionID
	OwnerID   id.PassID
	Node      *node.Node
	OfferedAt time.Time

	started  atomic.Bool
	finished atomic.Bool
	once     sync.Once
	onFinish func()
	done     chan struct{}
}

// New creates a session for node n claimed by the pass ownerID. onFinish may
// be nil.
func New(ownerID id.PassID, n *node.Node, onFinish func()) *Session {
	return &Session{
		ID:        id.NewSessionID(),
		OwnerID:   ownerID,
		Node:      n,
		OfferedAt: time.Now().UTC(),
		onFinish:  onFinish,
		done:      make(chan struct{}),
	}
}

// Start marks the session as accepted by the plugin. It returns false if the
// session already finished.
func (s *Session) Start() bool {
	if s.finished.Load() {
		return false
	}
	s.started.Store(true)
	return true
}

// Started reports whether the plugin accepted the session.
func (s *Session) Started() bool { return s.started.Load() }

// Finish completes the session. Calls after the first are no-ops.
func (s *Session) Finish() {
	s.once.Do(func() {
		s.finished.Store(true)
		if s.onFinish != nil {
			s.onFinish()
		}
		close(s.done)
	})
}

// Finished reports whether Finish has run.
func (s *Session) Finished() bool { return s.finished.Load() }

// Done is closed once the session finishes.
func (s *Session) Done() <-chan struct{} { return s.done }
