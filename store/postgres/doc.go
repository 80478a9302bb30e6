// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: conditional UPDATE lease claims decided by row locks, a partial
// index serving least-recently-active selection, embedded SQL migrations.
package postgres
