package cli

import (
	"raffle/internal/config"
	"raffle/internal/store"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile     string
	DatabaseURL string

	cfg config.Config
}

// NewRootCommand creates the root command for the rafflectl admin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rafflectl",
		Short:         "Administer the raffle database",
		SilenceErrors: true, // main prints the returned error
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.EnvFile); err != nil {
				return err
			}
			opts.cfg = config.Load()
			if opts.DatabaseURL != "" {
				opts.cfg.DatabaseURL = opts.DatabaseURL
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "database URL (defaults to DATABASE_URL)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCreateAdminCommand(opts))
	cmd.AddCommand(NewExportEntriesCommand(opts))

	return cmd
}

// openStore opens the configured database. The returned func closes it.
func (o *RootOptions) openStore() (store.Store, *gorm.DB, func(), error) {
	conn, err := store.Open(o.cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return store.New(conn), conn, closeFn, nil
}
