package ledgerwork

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("ledgerwork: no store configured")
	ErrStoreClosed     = errors.New("ledgerwork: store closed")
	ErrMigrationFailed = errors.New("ledgerwork: migration failed")

	// Node errors.
	ErrNodeNotFound      = errors.New("ledgerwork: ledger node not found")
	ErrNodeAlreadyExists = errors.New("ledgerwork: ledger node already exists")
	ErrNodeDeleted       = errors.New("ledgerwork: ledger node deleted")

	// Plugin errors.
	ErrPluginNotFound  = errors.New("ledgerwork: consensus plugin not found")
	ErrDuplicatePlugin = errors.New("ledgerwork: duplicate consensus plugin")

	// Scheduling errors.
	ErrPassInProgress = errors.New("ledgerwork: scheduling pass already in progress")
	ErrShuttingDown   = errors.New("ledgerwork: shutting down")
	ErrDisabled       = errors.New("ledgerwork: consensus work scheduling disabled")

	// Configuration errors.
	ErrInvalidConfig = errors.New("ledgerwork: invalid config")
)
