package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"raffle/internal/store"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back database migrations",
		Long: `Apply the SQL migrations in db/migrations to a Postgres database.

SQLite databases have no SQL migrations; they are brought up to date with
the same auto-migration the server runs at start-up.`,
		Args:         cobra.MaximumNArgs(1),
		ValidArgs:    []string{"up", "down"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrate(cmd, rootOpts, dir, direction)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "db/migrations", "directory holding the SQL migrations")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts *RootOptions, dir, direction string) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown direction %q: must be up or down", direction)
	}
	if opts.cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	if store.IsSQLite(opts.cfg.DatabaseURL) {
		if direction == "down" {
			return errors.New("down migrations are not supported for SQLite")
		}
		_, conn, closeFn, err := opts.openStore()
		if err != nil {
			return err
		}
		defer closeFn()
		if err := store.Migrate(conn); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "database migrations applied")
		return nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://"+filepath.ToSlash(abs), opts.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	defer m.Close()

	if direction == "up" {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database migration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database migrations applied (%s)\n", direction)
	return nil
}
