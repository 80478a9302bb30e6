// Package store defines the aggregate persistence interface. Each subsystem
// (node, lease) defines its own store interface. The composite Store
// composes them all. Backends: Mongo, Postgres, SQLite, Redis, and Memory.
package store

import (
	"context"

	"github.com/xraph/ledgerwork/lease"
	"github.com/xraph/ledgerwork/node"
)

// Store is the aggregate persistence interface.
// A single backend (mongo, postgres, sqlite, etc.) implements all of them.
type Store interface {
	node.Store
	lease.Store

	// Migrate runs all schema migrations and builds the eligibility index.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
