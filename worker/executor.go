// Package worker provides the session offer engine: an Executor that
// hands a work session to its consensus plugin through middleware, and a
// Pool that runs those offers asynchronously so a scheduling pass never
// waits on a plugin.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/ledgerwork/consensus"
	"github.com/xraph/ledgerwork/ext"
	"github.com/xraph/ledgerwork/middleware"
	"github.com/xraph/ledgerwork/session"
)

// Executor offers a single session to a plugin through the middleware
// chain, then settles the session: an accepted session keeps running, any
// other outcome finishes it on the plugin's behalf.
type Executor struct {
	extensions *ext.Registry
	mw         middleware.Middleware
	logger     *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(extensions *ext.Registry, logger *slog.Logger, mws ...middleware.Middleware) *Executor {
	return &Executor{
		extensions: extensions,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Execute calls plugin.ScheduleWork for s through the middleware chain.
//
// If the plugin started the session, SessionOffered fires and the session
// stays open until the plugin finishes it. If it did not (plain decline,
// error or panic), SessionDeclined fires and the session is finished
// immediately so its gate slot is returned.
func (e *Executor) Execute(ctx context.Context, plugin consensus.Schedulable, s *session.Session) error {
	terminal := func(ctx context.Context) error {
		return plugin.ScheduleWork(ctx, s)
	}

	err := e.run(ctx, s, terminal)

	if s.Started() {
		if err != nil {
			e.logger.Warn("plugin started session but reported an error",
				slog.String("session_id", s.ID.String()),
				slog.String("consensus", plugin.Name()),
				slog.String("error", err.Error()),
			)
		}
		e.extensions.EmitSessionOffered(ctx, s)
		return err
	}

	e.extensions.EmitSessionDeclined(ctx, s, err)
	s.Finish()
	return err
}

// run invokes the chain and converts any panic that escapes it into an
// error, so a misbehaving plugin or middleware can never leak a slot.
func (e *Executor) run(ctx context.Context, s *session.Session, terminal middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("session offer panicked",
				slog.String("session_id", s.ID.String()),
				slog.String("consensus", s.Node.Consensus),
				slog.Any("panic", r),
			)
			err = fmt.Errorf("panic offering session %s: %v", s.ID, r)
		}
	}()
	return e.mw(ctx, s, terminal)
}
