package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/velmed/callscore/internal/dict"
	"github.com/velmed/callscore/internal/lmsync"
	"github.com/velmed/callscore/internal/model"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage dictionary terms",
}

var termsImportFile string

var termsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a dictionary version from a YAML file",
	Long: `Loads a versioned term dictionary from YAML and upserts it. Existing terms
for the same (code, version, term) are updated in place; scoring picks the new
set up on the next dictionary cache refresh.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		terms, err := dict.LoadTermFile(termsImportFile)
		if err != nil {
			return err
		}

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := lmsync.NewPostgresRepository(pool, cfg.Store.WritesPerSec)
		n, err := repo.UpsertTerms(ctx, terms)
		if err != nil {
			return eris.Wrap(err, "terms import")
		}

		zap.L().Info("dictionary imported",
			zap.String("dict_code", terms[0].DictCode),
			zap.String("version", terms[0].Version),
			zap.Int64("terms", n),
		)
		return nil
	},
}

var termsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active terms of the configured dictionary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, err := scoringPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := lmsync.NewPostgresRepository(pool, cfg.Store.WritesPerSec)
		terms, err := repo.GetTerms(ctx, cfg.Dict.Code, cfg.Dict.Version, true)
		if err != nil {
			return eris.Wrap(err, "terms list")
		}
		if len(terms) == 0 {
			fmt.Printf("No active terms for %s/%s; import some with 'callscore terms import'.\n",
				cfg.Dict.Code, cfg.Dict.Version)
			return nil
		}

		formatTerms(os.Stdout, terms)
		return nil
	},
}

func init() {
	termsImportCmd.Flags().StringVar(&termsImportFile, "file", "", "path to YAML term file (required)")
	_ = termsImportCmd.MarkFlagRequired("file")

	termsCmd.AddCommand(termsImportCmd)
	termsCmd.AddCommand(termsListCmd)
	rootCmd.AddCommand(termsCmd)
}

// formatTerms writes a tabular representation of dictionary terms to w.
func formatTerms(out io.Writer, terms []model.DictionaryTerm) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TERM\tTYPE\tWEIGHT\tNEGATIVE\tVERSION")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t--------\t-------")
	for _, t := range terms {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.1f\t%t\t%s\n",
			truncate(t.Term, 50), t.MatchType, t.Weight, t.IsNegative, t.Version)
	}
	_ = w.Flush()
}
