package cli

import (
	"io"
	"os"

	"raffle/internal/services"

	"github.com/spf13/cobra"
)

// NewExportEntriesCommand creates the export-entries command.
func NewExportEntriesCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:          "export-entries",
		Short:        "Write all raffle entries as CSV",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, closeFn, err := rootOpts.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := services.NewRaffleService(st, nil).ListEntries(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return services.WriteEntriesCSV(w, entries)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	return cmd
}
