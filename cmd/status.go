package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/velmed/callscore/internal/lmsync"
	"github.com/velmed/callscore/internal/matrix"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watermark position, lag and recent sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		_, repo, holder := buildController(ctx, pool)

		wm, err := repo.GetWatermark(ctx, cfg.Sync.EngineVersion, cfg.Sync.Profile)
		if err != nil {
			return eris.Wrap(err, "status: load watermark")
		}
		lag, err := repo.CountUnprocessed(ctx, wm.LastID)
		if err != nil {
			return eris.Wrap(err, "status: count unprocessed")
		}

		syncLog := lmsync.NewSyncLog(pool)
		lastOK, err := syncLog.LastSuccess(ctx)
		if err != nil {
			return eris.Wrap(err, "status: last success")
		}

		fmt.Printf("Engine %s, profile %s\n", cfg.Sync.EngineVersion, cfg.Sync.Profile)
		fmt.Printf("Watermark: last_id=%d", wm.LastID)
		if !wm.LastDate.IsZero() {
			fmt.Printf(" last_date=%s", wm.LastDate.Format("2006-01-02"))
		}
		fmt.Printf("\nUnprocessed: %d\n", lag)
		if lastOK != nil {
			fmt.Printf("Last successful sync: %s\n", lastOK.UTC().Format("2006-01-02 15:04"))
		} else {
			fmt.Println("Last successful sync: never")
		}
		fmt.Printf("Complaint threshold: %.1f\n\n",
			holder.Current().Threshold(matrix.ThresholdComplaintScore, 0))

		entries, err := syncLog.Recent(ctx, 10)
		if err != nil {
			return eris.Wrap(err, "status: recent runs")
		}
		if len(entries) == 0 {
			fmt.Println("No sync runs recorded yet; run 'callscore sync' to start.")
			return nil
		}
		formatStatusEntries(os.Stdout, entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// formatStatusEntries writes a tabular representation of sync entries to w.
func formatStatusEntries(out io.Writer, entries []lmsync.SyncEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tPROCESSED\tSKIPPED\tFAILED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t-------\t--------\t---------\t-------\t------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}

		errMsg := ""
		if e.Error != "" {
			errMsg = truncate(e.Error, 60)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(e.ID.String()),
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.Processed,
			e.Skipped,
			e.Failed,
			errMsg,
		)
	}
	_ = w.Flush()
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
