// Package audithook is a ledgerwork extension that turns scheduling
// lifecycle events into structured audit events.
//
// Every pass, claim and work session hook emits an [AuditEvent] through the
// [Recorder] interface. Severity is info for normal operations, warning for
// declined offers and critical for passes aborted by a store error.
//
// # Usage
//
//	rec := audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return auditLog.Append(ctx, evt)
//	})
//	eng, err := engine.Build(inst, engine.WithExtension(audithook.New(rec)))
//
// [SlogRecorder] writes events to a *slog.Logger, which is what ledgerworkd
// uses when audit.enabled is set.
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionPassFailed,
//	        audithook.ActionSessionDeclined,
//	    ),
//	)
package audithook
