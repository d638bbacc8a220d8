package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded data points",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sector, _ := cmd.Flags().GetString("sector")
		dimension, _ := cmd.Flags().GetString("dimension")
		year, _ := cmd.Flags().GetInt("year")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		points, err := st.GetDataPoints(ctx, store.DataPointFilter{
			Sector:    sector,
			Dimension: dimension,
			Year:      year,
			Status:    model.ValidationStatus(status),
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "list")
		}

		if len(points) == 0 {
			fmt.Fprintln(os.Stderr, "No data points found.")
			return nil
		}

		formatDataPoints(os.Stdout, points)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <data-point-id>",
	Short: "Show full details of a data point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dp, err := st.GetDataPoint(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "show")
		}
		if dp == nil {
			return eris.Errorf("data point %s not found", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dp)
	},
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Show the seeded sectors and dimensions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sectors, err := st.ListSectors(ctx)
		if err != nil {
			return eris.Wrap(err, "taxonomy")
		}
		dims, err := st.ListDimensions(ctx)
		if err != nil {
			return eris.Wrap(err, "taxonomy")
		}

		fmt.Println("Sectors:")
		for _, sec := range sectors {
			fmt.Printf("  %s\n", sec.Name)
			for _, sub := range sec.Subcategories {
				fmt.Printf("    - %s\n", sub.Name)
			}
		}
		fmt.Println("\nDimensions:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, dim := range dims {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", dim.Name, dim.Unit, dim.Description)
		}
		return w.Flush()
	},
}

// formatDataPoints writes a tabular list of data points to w.
func formatDataPoints(out io.Writer, points []model.DataPoint) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSECTOR\tDIMENSION\tVALUE\tPERIOD\tCONF\tSTATUS")
	_, _ = fmt.Fprintln(w, "--\t------\t---------\t-----\t------\t----\t------")

	for _, dp := range points {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(dp.ID),
			dp.SectorName,
			dp.DimensionName,
			formatValue(dp.Value),
			formatPeriod(dp),
			dp.Confidence,
			dp.Status,
		)
	}
	_ = w.Flush()
}

func formatValue(v model.Value) string {
	switch v.Kind {
	case model.ValueNumber:
		return fmt.Sprintf("%.2f", v.Number)
	case model.ValueText:
		if len(v.Text) > 30 {
			return v.Text[:27] + "..."
		}
		return v.Text
	case model.ValueStructured:
		return "{...}"
	default:
		return ""
	}
}

func formatPeriod(dp model.DataPoint) string {
	switch {
	case dp.Year == 0:
		return ""
	case dp.Month != 0:
		return fmt.Sprintf("%04d-%02d", dp.Year, dp.Month)
	case dp.Quarter != 0:
		return fmt.Sprintf("%04d-Q%d", dp.Year, dp.Quarter)
	default:
		return fmt.Sprintf("%04d", dp.Year)
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	listCmd.Flags().String("sector", "", "filter by sector name")
	listCmd.Flags().String("dimension", "", "filter by dimension name")
	listCmd.Flags().Int("year", 0, "filter by reporting year")
	listCmd.Flags().String("status", "", "filter by validation status (pending, in_review, validated, rejected, outdated)")
	listCmd.Flags().Int("limit", 50, "max number of data points to display")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(taxonomyCmd)
}
