package commands

import (
	"github.com/spf13/cobra"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

type statsOutput struct {
	*models.Statistics
	Platforms []models.PlatformStats `json:"platforms"`
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stop()

			stats, err := a.Engine.Statistics(cmd.Context(), nil)
			if err != nil {
				return err
			}
			platforms, err := a.Sales.PlatformStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), statsOutput{Statistics: stats, Platforms: platforms})
		},
	}
}
