// Package export renders data points and detected changes as CSV, JSON,
// and XLSX for downstream analysis tools.
package export

import (
	"strconv"

	"github.com/sells-group/market-intel/internal/model"
)

// Format names a supported output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatJSON || f == FormatXLSX
}

func dataPointHeader() []string {
	return []string{
		"id", "sector", "subcategory", "dimension", "unit", "value",
		"year", "quarter", "month", "source", "confidence",
		"validation_status", "validated_by", "notes", "created_at",
	}
}

func dataPointRow(dp model.DataPoint) []string {
	return []string{
		dp.ID,
		dp.SectorName,
		dp.SubcategoryName,
		dp.DimensionName,
		dp.DimensionUnit,
		valueString(dp.Value),
		intString(dp.Year),
		intString(dp.Quarter),
		intString(dp.Month),
		dp.SourceName,
		string(dp.Confidence),
		string(dp.Status),
		dp.ValidatedBy,
		dp.Notes,
		dp.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func changeHeader() []string {
	return []string{
		"sector", "dimension", "old_value", "new_value", "percent_change",
		"change_type", "significance", "period", "detected_at",
	}
}

func changeRow(c model.Change) []string {
	return []string{
		c.Sector,
		c.Dimension,
		floatString(c.OldValue),
		floatString(c.NewValue),
		floatString(c.PercentChange),
		string(c.Kind),
		string(c.Significance),
		c.Period,
		c.DetectedAt.Format("2006-01-02 15:04:05"),
	}
}

func valueString(v model.Value) string {
	switch v.Kind {
	case model.ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case model.ValueText:
		return v.Text
	case model.ValueStructured:
		s, err := v.MarshalStructured()
		if err != nil {
			return ""
		}
		return s
	default:
		return ""
	}
}

func intString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func floatString(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}
