package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a data point",
	Long:  "Records one observation of a tracked dimension, optionally scoped to a sector and subcategory and backed by a source.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		value, err := valueFromFlags(cmd)
		if err != nil {
			return err
		}

		sourceID := ""
		sourceName, _ := cmd.Flags().GetString("source-name")
		if sourceName != "" {
			sourceURL, _ := cmd.Flags().GetString("source-url")
			sourceType, _ := cmd.Flags().GetString("source-type")
			reliability, _ := cmd.Flags().GetFloat64("reliability")
			sourceID, err = st.GetOrCreateSource(ctx, model.Source{
				Name:             sourceName,
				URL:              sourceURL,
				Type:             model.SourceType(sourceType),
				ReliabilityScore: reliability,
			})
			if err != nil {
				return err
			}
		}

		dimension, _ := cmd.Flags().GetString("dimension")
		sector, _ := cmd.Flags().GetString("sector")
		subcategory, _ := cmd.Flags().GetString("subcategory")
		year, _ := cmd.Flags().GetInt("year")
		quarter, _ := cmd.Flags().GetInt("quarter")
		month, _ := cmd.Flags().GetInt("month")
		confidence, _ := cmd.Flags().GetString("confidence")
		notes, _ := cmd.Flags().GetString("notes")
		actor, _ := cmd.Flags().GetString("actor")

		id, err := st.AddDataPoint(ctx, store.AddDataPointInput{
			Dimension:   dimension,
			Value:       value,
			Sector:      sector,
			Subcategory: subcategory,
			Year:        year,
			Quarter:     quarter,
			Month:       month,
			SourceID:    sourceID,
			Confidence:  model.Confidence(confidence),
			Notes:       notes,
			Actor:       actor,
		})
		if err != nil {
			return eris.Wrap(err, "add")
		}

		fmt.Println(id)
		return nil
	},
}

// valueFromFlags builds the tagged value from whichever of --value,
// --text, or --json was given.
func valueFromFlags(cmd *cobra.Command) (model.Value, error) {
	hasNumber := cmd.Flags().Changed("value")
	text, _ := cmd.Flags().GetString("text")
	blob, _ := cmd.Flags().GetString("json")

	given := 0
	for _, ok := range []bool{hasNumber, text != "", blob != ""} {
		if ok {
			given++
		}
	}
	if given != 1 {
		return model.Value{}, eris.New("exactly one of --value, --text, or --json is required")
	}

	switch {
	case hasNumber:
		n, _ := cmd.Flags().GetFloat64("value")
		return model.NumberValue(n), nil
	case text != "":
		return model.TextValue(text), nil
	default:
		var m map[string]any
		if err := json.Unmarshal([]byte(blob), &m); err != nil {
			return model.Value{}, eris.Wrap(err, "parse --json value")
		}
		return model.StructuredValue(m), nil
	}
}

func init() {
	addCmd.Flags().String("dimension", "", "dimension name (required)")
	addCmd.Flags().Float64("value", 0, "numeric value")
	addCmd.Flags().String("text", "", "text value")
	addCmd.Flags().String("json", "", "structured JSON value")
	addCmd.Flags().String("sector", "", "sector name")
	addCmd.Flags().String("subcategory", "", "subcategory name (requires --sector)")
	addCmd.Flags().Int("year", 0, "reporting year")
	addCmd.Flags().Int("quarter", 0, "reporting quarter (1-4)")
	addCmd.Flags().Int("month", 0, "reporting month (1-12)")
	addCmd.Flags().String("source-name", "", "source name (creates or reuses the source)")
	addCmd.Flags().String("source-url", "", "source URL")
	addCmd.Flags().String("source-type", "news", "source type (research_report, news, company, interview, government)")
	addCmd.Flags().Float64("reliability", 0.5, "source reliability score (0-1)")
	addCmd.Flags().String("confidence", "", "confidence level (high, medium, low, unverified)")
	addCmd.Flags().String("notes", "", "free-form notes")
	addCmd.Flags().String("actor", "", "who is recording this (defaults to system)")
	_ = addCmd.MarkFlagRequired("dimension")
	rootCmd.AddCommand(addCmd)
}
