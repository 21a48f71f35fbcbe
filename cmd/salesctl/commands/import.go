package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/diogoqz/api-consulta-hotmart/pkg/importer"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		platformName string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import platform export files",
		Long:  "Import one or more export files of a platform. Files identical to the last successful import are skipped unless --force is set.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, ok := models.ParsePlatform(platformName)
			if !ok {
				return fmt.Errorf("unsupported platform %q", platformName)
			}

			a, stop, err := startApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stop()

			results := make([]*importer.ImportResult, 0, len(args))
			for _, path := range args {
				result, err := importFile(cmd, a.Importer, platform, path, force)
				if err != nil {
					return fmt.Errorf("import %s: %w", path, err)
				}
				results = append(results, result)
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVarP(&platformName, "platform", "p", "", "platform of the export: hotmart or cakto (required)")
	cmd.Flags().BoolVar(&force, "force", false, "import even when the file is unchanged")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func importFile(cmd *cobra.Command, imp *importer.Importer, platform models.Platform, path string, force bool) (*importer.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return imp.Import(cmd.Context(), platform, filepath.Base(path), f, force)
}
