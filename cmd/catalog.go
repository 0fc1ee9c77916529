package cmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/partident/internal/catalog"
	"github.com/lehigh-university-libraries/partident/internal/report"
	"github.com/spf13/cobra"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the reference parts catalog",
	}

	cmd.AddCommand(newCatalogImportCmd(opts))
	cmd.AddCommand(newCatalogListCmd(opts))

	return cmd
}

func newCatalogImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a spreadsheet into the catalog",
		Long: `Imports the first sheet or table of an .xlsx, .csv, .json or .parquet file.

Columns are matched by header (Part Number / PN / codigo, Part Name / Name / nome,
Station / posto / estacao). Existing part numbers are overwritten.`,
		Example: `  partident catalog import parts.xlsx`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open catalog file: %w", err)
			}
			defer f.Close()

			accepted, err := a.importer.Import(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (catalog now has %d items)\n", catalog.Summary(accepted), a.catalog.Len())
			return nil
		},
	}
}

func newCatalogListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			items := a.catalog.Snapshot()
			return report.Write(cmd.OutOrStdout(), report.Catalog{Total: len(items), Items: items})
		},
	}
}
