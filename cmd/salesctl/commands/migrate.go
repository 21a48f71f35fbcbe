package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		Long:  "Apply the migrations of the configured driver up to DB_MIGRATION_VERSION, or the latest when unset.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stop, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stop()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
