package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/export"
	"github.com/sells-group/fieldguide/internal/taxa"
)

var (
	collectTaxon     string
	collectCount     int
	collectQuality   string
	collectPageSize  int
	collectPageDelay time.Duration
	collectOut       string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download observations of a taxon",
	Long:  "Resolves a taxon name and pages through its photographed observations, writing CSV, XLSX or JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("collect"); err != nil {
			return err
		}
		client, err := initTaxa(cfg)
		if err != nil {
			return err
		}

		col, err := client.Collect(ctx, collectTaxon, taxa.CollectOptions{
			Count:        collectCount,
			QualityGrade: collectQuality,
			PageSize:     collectPageSize,
			PageDelay:    collectPageDelay,
		})
		if err != nil {
			return err
		}

		zap.L().Info("collect complete",
			zap.String("taxon", col.Taxon.Name),
			zap.Int("observations", len(col.Observations)),
		)

		if collectOut == "" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(col)
		}
		return export.WriteFile(collectOut, col)
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectTaxon, "taxon", "", "taxon name to collect (required)")
	collectCmd.Flags().IntVar(&collectCount, "count", 100, "number of observations to collect")
	collectCmd.Flags().StringVar(&collectQuality, "quality", "research", "quality grade filter")
	collectCmd.Flags().IntVar(&collectPageSize, "page-size", 200, "observations per page (max 200)")
	collectCmd.Flags().DurationVar(&collectPageDelay, "page-delay", time.Second, "pause between pages")
	collectCmd.Flags().StringVar(&collectOut, "out", "", "output file (.csv or .xlsx); JSON to stdout when empty")
	_ = collectCmd.MarkFlagRequired("taxon")
	rootCmd.AddCommand(collectCmd)
}
