package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/detect"
	"github.com/sells-group/market-intel/internal/model"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect significant period-over-period changes",
}

// -- detect month --

var detectMonthCmd = &cobra.Command{
	Use:   "month",
	Short: "Compare every sector month-over-month",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		year, _ := cmd.Flags().GetInt("year")
		month, _ := cmd.Flags().GetInt("month")
		if year == 0 || month == 0 {
			now := time.Now()
			year, month = now.Year(), int(now.Month())
		}

		d := detect.New(st, cfg.Detector)
		changes, err := d.MonthOverMonth(ctx, year, month)
		if err != nil {
			return eris.Wrap(err, "detect month")
		}

		period := detect.Period{Year: year, Month: month}
		fmt.Print(detect.MonthlyReport(period.String(), changes))

		return saveIfRequested(cmd, st, changes)
	},
}

// -- detect year --

var detectYearCmd = &cobra.Command{
	Use:   "year",
	Short: "Compare every sector year-over-year using annual figures",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = time.Now().Year()
		}

		d := detect.New(st, cfg.Detector)
		changes, err := d.YearOverYear(ctx, year)
		if err != nil {
			return eris.Wrap(err, "detect year")
		}

		fmt.Print(detect.AnnualReport(fmt.Sprintf("%04d", year), changes))

		return saveIfRequested(cmd, st, changes)
	},
}

// -- detect list --

var detectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List previously saved detected changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		changes, err := st.ListDetectedChanges(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "detect list")
		}

		if len(changes) == 0 {
			fmt.Println("No detected changes recorded.")
			return nil
		}
		for _, c := range changes {
			fmt.Printf("%s  %-8s %-10s %s / %s", c.Period, c.Significance, c.Kind, c.Sector, c.Dimension)
			if c.PercentChange != nil {
				fmt.Printf("  %+.1f%%", *c.PercentChange)
			}
			fmt.Println()
		}
		return nil
	},
}

type changeSaver interface {
	SaveDetectedChanges(ctx context.Context, changes []model.Change) error
}

func saveIfRequested(cmd *cobra.Command, st changeSaver, changes []model.Change) error {
	save, _ := cmd.Flags().GetBool("save")
	if !save || len(changes) == 0 {
		return nil
	}
	if err := st.SaveDetectedChanges(cmd.Context(), changes); err != nil {
		return eris.Wrap(err, "save detected changes")
	}
	fmt.Printf("Saved %d change(s)\n", len(changes))
	return nil
}

func init() {
	detectMonthCmd.Flags().Int("year", 0, "year to compare (default: current)")
	detectMonthCmd.Flags().Int("month", 0, "month to compare (default: current)")
	detectMonthCmd.Flags().Bool("save", false, "persist detected changes")
	detectYearCmd.Flags().Int("year", 0, "year to compare (default: current)")
	detectYearCmd.Flags().Bool("save", false, "persist detected changes")
	detectListCmd.Flags().Int("limit", 50, "max changes to display")

	detectCmd.AddCommand(detectMonthCmd)
	detectCmd.AddCommand(detectYearCmd)
	detectCmd.AddCommand(detectListCmd)
	rootCmd.AddCommand(detectCmd)
}
