package cli

import (
	"errors"
	"fmt"
	"os"

	"raffle/internal/auth"

	"github.com/spf13/cobra"
)

// NewCreateAdminCommand creates the create-admin command.
func NewCreateAdminCommand(rootOpts *RootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:          "create-admin",
		Short:        "Create an admin account",
		Long:         "Create an admin account. The password is read from --password or ADMIN_PASSWORD.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and a password are required")
			}

			st, _, closeFn, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			admin, err := auth.CreateAdmin(cmd.Context(), st, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Username, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")

	return cmd
}
