package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/tendant/gymdesk/internal/seed"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/repository"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	reset   bool
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed memberships|admins",
		Short: "Seed the membership catalog or the default accounts",
		Long: `Inserts the standard membership catalog or the default admin and staff
accounts. Existing data is left alone unless --reset is given, which deletes
and reinserts it.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"memberships", "admins"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.reset, "reset", false, "delete existing rows before seeding")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, args []string, sc *seedConfig) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	conn, err := repository.NewDB(cfg.Database())
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer conn.Close()

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), sc.timeout)
	defer cancel()

	seeder := seed.New(logger,
		repository.NewMembershipsRepository(conn),
		repository.NewAdminsRepository(conn),
		auth.NewBcryptHasher(cfg.BcryptCost),
	)

	var n int
	switch args[0] {
	case "memberships":
		n, err = seeder.Memberships(ctx, sc.reset)
	case "admins":
		n, err = seeder.Admins(ctx, sc.reset)
	}
	if err != nil {
		return err
	}

	if n == 0 {
		cmd.Printf("%s already present, nothing seeded (use --reset to replace)\n", args[0])
		return nil
	}
	cmd.Printf("Seeded %d %s\n", n, args[0])
	return nil
}
