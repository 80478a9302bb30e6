// Package trigger fires scheduling passes on a recurring schedule.
//
// Schedules are either "@every <duration>" descriptors, honoured exactly
// including sub-second intervals, or cron expressions with an optional
// seconds field:
//
//	t, err := trigger.New(func(ctx context.Context, passID id.PassID) error {
//	    _, err := sched.RunPass(ctx, passID)
//	    return err
//	}, "@every 100ms", logger)
//
// Passes run on the trigger goroutine, so at most one pass is in flight and
// ticks that fall inside a running pass are skipped rather than queued.
package trigger
