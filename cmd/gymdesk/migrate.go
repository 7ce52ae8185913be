package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/tendant/gymdesk/internal/db"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Run database migrations",
		Long:      `Apply (up) or roll back (down) every embedded schema migration.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	direction := db.Direction(args[0])
	cmd.Printf("Running migrations %s...\n", direction)
	if err := db.Run(cfg.Database().DSN(), direction); err != nil {
		return oops.Code("MIGRATION_FAILED").With("direction", direction).Wrap(err)
	}

	logger.Info("migrations applied", "direction", direction)
	cmd.Println("Migrations completed successfully")
	return nil
}
