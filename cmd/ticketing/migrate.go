package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/helpdesk-labs/ticketing/internal/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

func init() {
	for _, command := range []struct {
		use   string
		short string
		op    persistence.MigrationCommand
	}{
		{"up", "Apply all pending migrations", persistence.MigrateUp},
		{"down", "Roll back the most recent migration", persistence.MigrateDown},
		{"status", "Print migration status", persistence.MigrateStatus},
	} {
		op := command.op
		migrateCmd.AddCommand(&cobra.Command{
			Use:   command.use,
			Short: command.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd, op)
			},
		})
	}
}

func runMigrate(cmd *cobra.Command, op persistence.MigrationCommand) error {
	rt, err := newRuntime("migrate")
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN must be set to run migrations")
	}
	pg, err := persistence.NewPostgres(cmd.Context(), rt.cfg.Postgres, rt.logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	return persistence.Migrate(cmd.Context(), pg.Pool, op, rt.logger)
}
