package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/ledgerwork"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the store schema and indexes, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log)

		cfg.Store.AutoMigrate = false
		s, err := connectStore(cmd.Context(), cfg.Store, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("%w: %w", ledgerwork.ErrMigrationFailed, err)
		}
		logger.Info("store migrated", slog.String("store", cfg.Store.Driver))
		return nil
	},
}
