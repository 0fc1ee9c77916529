package cmd

import (
	"github.com/lehigh-university-libraries/partident/internal/models"
	"github.com/lehigh-university-libraries/partident/internal/report"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent identification sessions as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			sessions, err := a.db.ListRecentSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), report.History{Sessions: sessions})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", models.HistoryLimit, "Number of sessions to show (max 15)")

	return cmd
}
