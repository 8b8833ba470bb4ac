package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent metric values to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "export"))

		days, _ := cmd.Flags().GetInt("days")
		output, _ := cmd.Flags().GetString("output")

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		_, repo, _ := buildController(ctx, pool)

		log.Info("exporting metric values",
			zap.Int("days", days), zap.String("output", output))
		n, err := export.WriteWorkbook(ctx, repo, days, output)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		fmt.Printf("Wrote %d rows to %s\n", n, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().Int("days", 7, "export values computed in the last N days")
	exportCmd.Flags().String("output", "metrics.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
