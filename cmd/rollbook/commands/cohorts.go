package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/casteleyn/rollbook/pipeline"
)

// CohortsCmd reconstructs membership cohorts at year-start anchors.
var CohortsCmd = &cobra.Command{
	Use:   "cohorts",
	Short: "Reconstruct membership cohorts at year-start anchors",
	Long: `Reconstruct the membership cohort at each year-start anchor date by
replaying category-change reports backwards from the live directory, then
pruning people who had not yet been added or who had already departed.

Examples:
  rollbook cohorts                 # Anchors from configuration
  rollbook cohorts --anchors 5     # Go back five year-starts
  rollbook cohorts --json          # Machine-readable output`,
	RunE: runCohorts,
}

var (
	cohortsAnchorsFlag int
	cohortsJSONFlag    bool
)

func init() {
	CohortsCmd.Flags().IntVar(&cohortsAnchorsFlag, "anchors", 0, "Number of year-start anchors (0 = configured value)")
	CohortsCmd.Flags().BoolVar(&cohortsJSONFlag, "json", false, "Output cohort sizes as JSON")
}

func runCohorts(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	n := cohortsAnchorsFlag
	if n <= 0 {
		n = s.cfg.Cohorts.Anchors
	}
	anchors := pipeline.AnchorDates(n, time.Now())

	cohorts, err := s.runner.ReconstructCohorts(cmd.Context(), anchors)
	if err != nil {
		return err
	}

	// Newest anchor first, matching reconstruction order.
	dates := make([]time.Time, 0, len(cohorts))
	for d := range cohorts {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	if cohortsJSONFlag {
		sizes := make(map[string]int, len(dates))
		for _, d := range dates {
			sizes[d.Format("2006-01-02")] = len(cohorts[d])
		}
		out, err := json.MarshalIndent(sizes, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	pterm.DefaultHeader.WithFullWidth().Printf("Membership Cohorts (run %s)", s.runner.RunID())
	pterm.Println()

	rows := pterm.TableData{{"Anchor", "Cohort Size"}}
	for _, d := range dates {
		rows = append(rows, []string{d.Format("2006-01-02"), fmt.Sprintf("%d", len(cohorts[d]))})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	pterm.Println()
	pterm.Success.Printf("Reconstructed %d cohorts", len(cohorts))
	return nil
}
