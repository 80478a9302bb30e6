// Package sqlite implements store.Store on an embedded SQLite database.
// Suitable for single-process deployments, CLI tools and tests.
//
// It opens the database with the pure-Go modernc.org/sqlite driver and
// delegates every query to the Bun store in [bunstore] using the SQLite
// dialect:
//
//	s, err := sqlite.Open(ctx, "file:ledgerwork.db?_pragma=busy_timeout(5000)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The connection pool is limited to one connection so that conditional
// updates are serialised by the database handle instead of failing with
// SQLITE_BUSY.
package sqlite
