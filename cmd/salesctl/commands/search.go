package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		maxResults  int
		minScore    int
		sortBy      string
		grouped     bool
		suggestions bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search customers by name, email or phone",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, stop, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stop()

			query := strings.Join(args, " ")
			searchOpts := search.Options{Options: a.Config.Policy.Search, GroupByClient: grouped}
			if cmd.Flags().Changed("max-results") {
				searchOpts.MaxResults = maxResults
			}
			if cmd.Flags().Changed("min-score") {
				searchOpts.MinScore = minScore
			}
			if sortBy != "" {
				searchOpts.SortBy = models.SortBy(sortBy)
			}

			result, err := a.Engine.Search(cmd.Context(), query, searchOpts)
			if err != nil {
				return err
			}
			if suggestions {
				withSuggestions, err := a.Engine.Suggest(cmd.Context(), query, result, searchOpts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), withSuggestions)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 50, "maximum results")
	cmd.Flags().IntVar(&minScore, "min-score", 10, "minimum relevance score")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "relevance, name or recent")
	cmd.Flags().BoolVarP(&grouped, "grouped", "g", false, "group transactions by customer")
	cmd.Flags().BoolVar(&suggestions, "suggestions", false, "suggest similar names for thin results")
	return cmd
}
