package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/partident/internal/capture"
	"github.com/lehigh-university-libraries/partident/internal/config"
	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/report"
	"github.com/spf13/cobra"
)

func newIdentifyCmd(opts *rootOptions) *cobra.Command {
	var provider, model string

	cmd := &cobra.Command{
		Use:   "identify <image|url>...",
		Short: "Identify a part from three or more photos",
		Long: `Runs one scan: the photos are captured in order, sent to the vision model
with the current catalog, and the session is stored in history.

Each argument is a local image path or an http(s) URL.`,
		Example: `  partident identify front.jpg side.jpg top.jpg
  partident identify --provider openai https://example.com/a.jpg b.png c.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, func(cfg *config.Config) {
				if provider != "" {
					cfg.Provider = provider
					if model == "" {
						cfg.Model = ""
					}
				}
				if model != "" {
					cfg.Model = model
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			fetcher := images.NewFetcher(a.cfg.MaxImageSize)
			files := make([]capture.RawFile, 0, len(args))
			for _, arg := range args {
				if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
					data, name, err := fetcher.Fetch(cmd.Context(), arg)
					if err != nil {
						return fmt.Errorf("failed to fetch %s: %w", arg, err)
					}
					files = append(files, capture.FileFromBytes(name, data))
					continue
				}
				files = append(files, capture.FileFromPath(filepath.Clean(arg)))
			}

			if _, err := a.orchestrator.AddBatch(cmd.Context(), files); err != nil {
				return err
			}

			outcome, err := a.orchestrator.StartIdentification(cmd.Context())
			if err != nil {
				return err
			}

			doc := report.NewIdentification(report.RunConfig{
				Provider: a.cfg.Provider,
				Model:    a.cfg.Model,
				Catalog:  a.catalog.Len(),
			}, outcome)
			return report.Write(cmd.OutOrStdout(), doc)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Vision provider (gemini, openai, ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults per provider)")

	return cmd
}
