// Package engine wires the ledgerwork subsystems together and provides the
// application-level API for running consensus work scheduling.
//
// The engine package exists to break an import cycle: the root ledgerwork
// package defines Entity and Config (imported by node, scheduler, etc.) and
// therefore cannot import those packages back. Engine sits above all
// subsystem packages and below the application layer.
//
// # Building an Engine
//
//	inst, err := ledgerwork.New(
//	    ledgerwork.WithStore(pgStore),
//	    ledgerwork.WithConcurrency(4),
//	)
//
//	eng, err := engine.Build(inst,
//	    engine.WithPlugin(myConsensus),
//	    engine.WithExtension(myExtension),
//	    engine.WithMiddleware(myMiddleware),
//	)
//
// # Lifecycle
//
// Start begins recurring scheduling passes when the instance is enabled.
// Shutdown raises the shutdown flag, waits the configured grace period so a
// running pass can finish its iteration and release its leases, then stops
// the trigger and the offer pool and closes the store.
//
// # Options
//
//   - [WithPlugin] register a consensus plugin
//   - [WithExtension] register a lifecycle extension
//   - [WithMiddleware] add a middleware to the offer chain
//   - [WithTracerProvider] set the OpenTelemetry tracer provider
//   - [WithMeterProvider] set the OpenTelemetry meter provider
package engine
