package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute metrics for a single call",
	Long: `Re-runs the full scoring pipeline for one call record and re-persists its
metric set, regardless of the watermark. Useful after a dictionary or weight
matrix change, or to inspect why a call scored the way it did.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "score"))

		historyID, _ := cmd.Flags().GetInt64("history-id")
		if historyID <= 0 {
			return eris.New("score: --history-id is required")
		}

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		ctl, _, _ := buildController(ctx, pool)

		log.Info("rescoring call", zap.Int64("history_id", historyID))
		res, err := ctl.ScoreOne(ctx, historyID)
		if err != nil {
			return eris.Wrap(err, "score")
		}

		fmt.Printf("history_id=%d complaint_score=%.1f flag=%t\n", historyID, res.Score, res.Flag)
		if res.Gated {
			fmt.Printf("gated: %s\n", res.GateReason)
		}
		for _, reason := range res.Reasons {
			fmt.Printf("  - %s\n", reason)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().Int64("history-id", 0, "call history id to rescore")
	rootCmd.AddCommand(scoreCmd)
}
