package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/lmsync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Score unprocessed call records",
	Long: `Runs one incremental sync cycle: fetches call records past the watermark,
scores them, persists the metric values and advances the watermark.

Use --full to keep running cycles until the source is exhausted (backfill).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		full, _ := cmd.Flags().GetBool("full")

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		// Ensure migrations are current.
		if err := lmsync.Migrate(ctx, pool); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		ctl, _, _ := buildController(ctx, pool)
		syncLog := lmsync.NewSyncLog(pool)

		log.Info("starting sync", zap.Bool("full", full))
		res, err := ctl.Run(ctx, syncLog, full)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Printf("Sync %s: processed=%d skipped=%d failed=%d last_id=%d\n",
			res.Status, res.Processed, res.Skipped, res.Failed, res.LastID)
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("full", false, "run cycles until the source is exhausted")
	rootCmd.AddCommand(syncCmd)
}
