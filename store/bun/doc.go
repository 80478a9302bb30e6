// Package bunstore implements store.Store using the Bun ORM. It runs on the
// PostgreSQL and SQLite dialects; the schema is created from the Bun models
// so the same Migrate serves both.
//
// The caller owns the *bun.DB lifecycle; bunstore never closes it. Pass the
// db handle through the constructor:
//
//	import (
//	    "github.com/uptrace/bun"
//	    "github.com/uptrace/bun/dialect/pgdialect"
//	    "github.com/uptrace/bun/driver/pgdriver"
//	    bunstore "github.com/xraph/ledgerwork/store/bun"
//	)
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(...))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	store := bunstore.New(db)
//	store.Migrate(ctx)
//
// For an embedded database see package store/sqlite, which opens one with
// modernc.org/sqlite and hands it to this package.
package bunstore
