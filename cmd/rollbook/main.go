package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/casteleyn/rollbook/cmd/rollbook/commands"
	"github.com/casteleyn/rollbook/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rollbook",
	Short: "Rollbook - Cohort reconstruction and record matching",
	Long: `Rollbook - Cohort reconstruction and record matching over a person directory.

Rollbook reconstructs historical membership cohorts from category-change
reports, matches attendance and visitor records against per-year directory
snapshots, and allocates unmatched residue across destination buckets.

Available commands:
  cohorts  - Reconstruct membership cohorts at year-start anchors
  visitors - Match and allocate a year's visitor report
  cache    - Manage the lifecycle date cache
  version  - Show version information

Examples:
  rollbook cohorts                 # Reconstruct cohorts for configured anchors
  rollbook cohorts --anchors 5     # Go back five year-starts
  rollbook visitors --year 2024    # Bucket counts for the 2024 visitor report
  rollbook cache stats             # Show lifecycle cache statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if verbosity > 0 {
			return logger.SetLevel(zapcore.DebugLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.CohortsCmd)
	rootCmd.AddCommand(commands.VisitorsCmd)
	rootCmd.AddCommand(commands.CacheCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
