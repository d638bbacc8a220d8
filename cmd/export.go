package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/export"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <output-file>",
	Short: "Export data points and detected changes",
	Long:  "Exports to CSV, JSON, or XLSX based on --format. CSV and JSON cover data points; XLSX adds a second sheet of detected changes.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		format, _ := cmd.Flags().GetString("format")
		f := export.Format(format)
		if !f.Valid() {
			return eris.Errorf("unsupported format: %s", format)
		}

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
			return eris.Wrap(err, "export")
		}

		path := args[0]
		switch f {
		case export.FormatXLSX:
			changes, err := st.ListDetectedChanges(ctx, limit)
			if err != nil {
				return eris.Wrap(err, "export")
			}
			if err := export.WriteWorkbook(path, points, changes); err != nil {
				return err
			}
		default:
			out, err := os.Create(path)
			if err != nil {
				return eris.Wrapf(err, "create %s", path)
			}
			defer out.Close() //nolint:errcheck

			if f == export.FormatCSV {
				err = export.WriteDataPointsCSV(out, points)
			} else {
				err = export.WriteDataPointsJSON(out, points)
			}
			if err != nil {
				return err
			}
		}

		fmt.Printf("Exported %d data point(s) to %s\n", len(points), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "csv", "output format (csv, json, xlsx)")
	exportCmd.Flags().String("sector", "", "filter by sector name")
	exportCmd.Flags().String("dimension", "", "filter by dimension name")
	exportCmd.Flags().Int("year", 0, "filter by reporting year")
	exportCmd.Flags().String("status", "", "filter by validation status")
	exportCmd.Flags().Int("limit", 10000, "max rows to export")
	rootCmd.AddCommand(exportCmd)
}
