package consensus

import (
	"context"

	"github.com/xraph/ledgerwork/session"
)

// Plugin is the base interface every consensus plugin implements.
type Plugin interface {
	// Name returns the plugin name referenced by ledger nodes.
	Name() string
}

// Schedulable is implemented by plugins that accept scheduled work.
type Schedulable interface {
	Plugin

	// ScheduleWork offers a claimed node to the plugin. The plugin calls
	// s.Start to accept and s.Finish exactly once when the work is done.
	ScheduleWork(ctx context.Context, s *session.Session) error
}

// Capability tags what a plugin supports.
type Capability string

const (
	// CapabilitySchedulable marks plugins implementing Schedulable.
	CapabilitySchedulable Capability = "schedulable"
	// CapabilityNotSchedulable marks plugins that decline scheduled work.
	CapabilityNotSchedulable Capability = "not_schedulable"
)

// CapabilityOf returns the capability tag of p.
func CapabilityOf(p Plugin) Capability {
	if _, ok := p.(Schedulable); ok {
		return CapabilitySchedulable
	}
	return CapabilityNotSchedulable
}

// ScheduleFunc adapts a function into a Schedulable plugin.
func ScheduleFunc(name string, fn func(ctx context.Context, s *session.Session) error) Schedulable {
	return &funcPlugin{name: name, fn: fn}
}

type funcPlugin struct {
	name string
	fn   func(ctx context.Context, s *session.Session) error
}

func (p *funcPlugin) Name() string { return p.name }

func (p *funcPlugin) ScheduleWork(ctx context.Context, s *session.Session) error {
	return p.fn(ctx, s)
}

// Named returns a plugin that only has a name and never accepts work.
func Named(name string) Plugin { return namedPlugin(name) }

type namedPlugin string

func (p namedPlugin) Name() string { return string(p) }
