package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot/analytics"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

var (
	statsLimit int
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the question log",
	Long: `Report how many questions were answered, clarified or failed, the
questions asked most often and the latest questions. Needs store.path.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		if cfg.Store.Path == "" {
			logger.Warn("stats.no_store", zap.String("hint", "set store.path to read a persistent question log"))
		}
		return writeStats(ctx, st, cmd.OutOrStdout(), statsLimit, statsJSON)
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", analytics.DefaultWindow, "Recent questions to examine")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the report as JSON")
}

func writeStats(ctx context.Context, st store.Store, w io.Writer, limit int, asJSON bool) error {
	report, err := analytics.NewAnalyzer(st).Report(ctx, limit)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return report.WriteText(w)
}
