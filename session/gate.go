package session

import "sync/atomic"

// Gate counts the work sessions this process has in flight. It is shared by
// every scheduling pass of the process and only ever changes through atomic
// increments and decrements.
type Gate struct {
	limit   int64
	running atomic.Int64
}

// NewGate creates a gate admitting up to limit sessions.
func NewGate(limit int) *Gate {
	return &Gate{limit: int64(limit)}
}

// Acquire records one more session in flight. It never blocks and never
// refuses: capacity is checked by the caller before claiming work.
func (g *Gate) Acquire() { g.running.Add(1) }

// Release records that a session is no longer in flight. It reports false,
// and changes nothing, when no session is in flight; the counter never goes
// below zero.
func (g *Gate) Release() bool {
	for {
		cur := g.running.Load()
		if cur <= 0 {
			return false
		}
		if g.running.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Running returns the number of sessions in flight.
func (g *Gate) Running() int { return int(g.running.Load()) }

// Limit returns the configured ceiling.
func (g *Gate) Limit() int { return int(g.limit) }

// HasCapacity reports whether another session may be offered.
func (g *Gate) HasCapacity() bool { return g.running.Load() < g.limit }
