// Package commands holds the salesctl command tree
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/internal/app"
)

type rootOptions struct {
	envFile string
	verbose bool
}

// NewRootCmd builds the salesctl command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "salesctl",
		Short: "Manage the Hotmart and Cakto sales store",
		Long: `salesctl imports platform exports into the sales store and runs the same
customer searches the API serves, reading configuration from the environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile == "" {
				return nil
			}
			if err := godotenv.Load(opts.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.envFile, "env-file", "e", "", "env file to load before reading the environment")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newImportCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
	)
	return cmd
}

// startApp loads the configuration and starts the infrastructure. The returned stop function
// must be called once the command is done.
func startApp(ctx context.Context, opts *rootOptions) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.LogLevel = "error"
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	a := app.New(cfg, logger)
	if err := a.Start(ctx); err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Stop(context.Background()) }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
