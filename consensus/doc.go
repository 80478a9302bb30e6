// Package consensus defines the boundary between the scheduler and the
// consensus plugins that actually run work sessions.
//
// Every ledger node names a consensus plugin. A plugin that wants scheduled
// work implements [Schedulable]; any other plugin is [NotSchedulable] and
// nodes using it are claimed and released without an offer.
//
//	reg := consensus.NewRegistry()
//	_ = reg.Register(consensus.ScheduleFunc("continuity", func(ctx context.Context, s *session.Session) error {
//	    if !s.Start() {
//	        return nil
//	    }
//	    go func() {
//	        defer s.Finish()
//	        runWork(ctx, s.Node)
//	    }()
//	    return nil
//	}))
//
// ScheduleWork must return quickly. A plugin that does not call
// [session.Session.Start] before returning declines the offer; the
// scheduler then finishes the session on its behalf.
package consensus
