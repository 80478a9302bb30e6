package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/ledgerwork"
	"github.com/xraph/ledgerwork/store"
	bunstore "github.com/xraph/ledgerwork/store/bun"
	"github.com/xraph/ledgerwork/store/memory"
	"github.com/xraph/ledgerwork/store/mongo"
	"github.com/xraph/ledgerwork/store/postgres"
	"github.com/xraph/ledgerwork/store/redis"
	"github.com/xraph/ledgerwork/store/sqlite"
)

// openStore connects the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	if cfg.Driver != "memory" && cfg.DSN == "" {
		return nil, fmt.Errorf("%w: store.dsn is required for driver %q", ledgerwork.ErrInvalidConfig, cfg.Driver)
	}

	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "mongo":
		return mongo.Open(ctx, cfg.DSN, cfg.Database, mongo.WithLogger(logger))
	case "postgres":
		return postgres.New(ctx, cfg.DSN, postgres.WithLogger(logger))
	case "bun":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return &ownedBunStore{Store: bunstore.New(db, bunstore.WithLogger(logger)), db: db}, nil
	case "sqlite":
		return sqlite.Open(ctx, cfg.DSN, bunstore.WithLogger(logger))
	case "redis":
		return redis.Open(ctx, cfg.DSN, redis.WithLogger(logger), redis.WithKeyPrefix(cfg.KeyPrefix))
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", ledgerwork.ErrInvalidConfig, cfg.Driver)
	}
}

// ownedBunStore closes the *bun.DB the daemon opened for it.
type ownedBunStore struct {
	*bunstore.Store
	db *bun.DB
}

func (s *ownedBunStore) Close() error {
	return errors.Join(s.Store.Close(), s.db.Close())
}
