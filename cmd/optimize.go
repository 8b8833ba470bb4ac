package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/optimizer"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Retune the weight matrix from recent dictionary hits",
	Long: `Aggregates recent dictionary hits by category, recomputes the complaint
threshold and per-category multipliers, persists the new matrix and swaps it
in for subsequent scoring. Re-running with the same hit window is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "optimize"))

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		_, repo, holder := buildController(ctx, pool)

		// Dry runs write the retuned matrix to the local SQLite copy so it
		// can be inspected without touching the shared one.
		store := matrix.Store(matrix.NewPostgresStore(pool))
		if dryRun {
			local, err := matrix.NewSQLite(cfg.Store.SQLitePath)
			if err != nil {
				return eris.Wrap(err, "optimize: open local store")
			}
			defer local.Close()
			if err := local.Migrate(ctx); err != nil {
				return eris.Wrap(err, "optimize: migrate local store")
			}
			store = local
		}

		opt := optimizer.New(repo, store, holder, optimizer.Config{
			DictCode:     cfg.Dict.Code,
			LookbackDays: cfg.Optimizer.LookbackDays,
			Limit:        cfg.Optimizer.HitLimit,
		})

		log.Info("running weight optimization",
			zap.Int("lookback_days", cfg.Optimizer.LookbackDays))
		report, err := opt.Optimize(ctx)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}

		fmt.Printf("hits=%d threshold=%.1f updated=%t\n", report.TotalHits, report.Threshold, report.Updated)
		cats := make([]string, 0, len(report.Shares))
		for cat := range report.Shares {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		for _, cat := range cats {
			fmt.Printf("  %-14s %.1f%%\n", cat, report.Shares[cat]*100)
		}
		return nil
	},
}

func init() {
	optimizeCmd.Flags().Bool("dry-run", false, "save the retuned matrix to the local SQLite copy instead of the shared store")
	rootCmd.AddCommand(optimizeCmd)
}
