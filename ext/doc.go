// Package ext defines the extension system for ledgerwork.
//
// Extensions are notified of scheduling events and can react to them,
// for example by recording metrics or writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnSessionFinished(ctx context.Context, s *session.Session, elapsed time.Duration) error {
//	    log.Printf("session %s on node %s finished in %s", s.ID, s.Node.ID, elapsed)
//	    return nil
//	}
//
// # Pass Hooks
//
//   - [PassStarted]: a scheduling pass began
//   - [NodeClaimed]: the pass leased a ledger node
//   - [ClaimRetried]: the pass lost a race for a node and will retry
//   - [PassCompleted]: the pass released its leases and ended
//
// # Session Hooks
//
//   - [SessionOffered]: a consensus plugin accepted a work session
//   - [SessionDeclined]: a plugin did not start the session
//   - [SessionFinished]: a work session ended and freed its slot
//
// # Other Hooks
//
//   - [Shutdown]: the instance is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
