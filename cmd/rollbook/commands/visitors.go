package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/casteleyn/rollbook/allocate"
)

// VisitorsCmd matches a year's visitor report and allocates it to buckets.
var VisitorsCmd = &cobra.Command{
	Use:   "visitors",
	Short: "Match and allocate a year's visitor report",
	Long: `Download the visitor report for a year, deduplicate and match its rows
against per-year directory snapshots, and report the bucket counts. Rows
that match carry their own destination; unmatched residue is split
proportionally across the configured buckets.

Examples:
  rollbook visitors                # Current year
  rollbook visitors --year 2024
  rollbook visitors --year 2024 --json`,
	RunE: runVisitors,
}

var (
	visitorsYearFlag     int
	visitorsLookbackFlag int
	visitorsJSONFlag     bool
)

func init() {
	VisitorsCmd.Flags().IntVar(&visitorsYearFlag, "year", 0, "Report year (0 = current year)")
	VisitorsCmd.Flags().IntVar(&visitorsLookbackFlag, "lookback", -1, "Prior years to search when matching (-1 = configured value)")
	VisitorsCmd.Flags().BoolVar(&visitorsJSONFlag, "json", false, "Output bucket counts as JSON")
}

func runVisitors(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	year := visitorsYearFlag
	if year <= 0 {
		year = time.Now().Year()
	}
	if visitorsLookbackFlag >= 0 {
		s.cfg.Matching.LookbackYears = visitorsLookbackFlag
	}

	counts, err := s.runner.VisitorCounts(cmd.Context(), year)
	if err != nil {
		return err
	}

	order := make([]allocate.Bucket, 0, len(s.cfg.BucketOrder()))
	for _, name := range s.cfg.BucketOrder() {
		order = append(order, allocate.Bucket(name))
	}

	if visitorsJSONFlag {
		out, err := json.MarshalIndent(counts, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	pterm.DefaultHeader.WithFullWidth().Printf("Visitor Counts %d (run %s)", year, s.runner.RunID())
	pterm.Println()

	rows := pterm.TableData{{"Bucket", "Count"}}
	for _, b := range order {
		rows = append(rows, []string{string(b), fmt.Sprintf("%d", counts[b])})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	pterm.Println()
	pterm.Success.Printf("Total: %d", allocate.Sum(counts))
	return nil
}
