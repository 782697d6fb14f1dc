// =============================================================================
// Campaign Reconciler - Plan Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler plan <plan.csv>... [--out exploded.csv]
//
// Parses media plans, explodes their packages and prints the placement
// records as CSV. Useful for checking a plan before a run.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/campaign-reconciler/internal/plan"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan <file>...",
	Short: "Explode media plans into placement records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		records, err := plan.ParseFiles(args, cfg.CSVSettings, cfg.MaxConcurrency)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if planOut != "" {
			f, err := os.Create(planOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", planOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := plan.WriteCSV(w, records); err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), plan.Summary(records))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "Write the records to this file instead of stdout")
}
