// =============================================================================
// Campaign Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reconciler)
//   ├── reconcileCmd (reconciler reconcile)
//   ├── planCmd      (reconciler plan)
//   └── versionCmd   (reconciler version)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/campaign-reconciler/internal/config"
	"github.com/ginjaninja78/campaign-reconciler/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Campaign Reconciler - Reconcile served ad delivery with media plans and spend",
	Long: `Campaign Reconciler joins an ad server delivery report with the media
plans that bought the placements and the programmatic spend reports that
billed them, producing one reconciled table.

Key Features:
  - Package explosion for media plans sold as bundles
  - Even or weighted redistribution of plan measures and spend
  - Balance audit of every join key after each merge
  - Monthly commitment pacing
  - XLSX or CSV output, with an optional SQLite copy

Example Usage:
  reconciler reconcile                        # Run with ./config.yaml
  reconciler reconcile --config ./march.yaml  # Use a custom configuration file
  reconciler plan "Spring Media Plan.csv"     # Show the exploded plan`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file. When the default file is absent
// and --config was not given, the built-in defaults are used.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if !cmd.Flags().Changed("config") && !utils.FileExists(cfgFile) {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}
