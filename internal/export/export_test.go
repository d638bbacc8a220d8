package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/market-intel/internal/model"
)

func samplePoints() []model.DataPoint {
	created := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []model.DataPoint{
		{
			ID:            "dp-1",
			SectorName:    "Industrial Robotics",
			DimensionName: "market_size",
			DimensionUnit: "USD billions",
			Value:         model.NumberValue(52.8),
			Year:          2025,
			Quarter:       2,
			SourceName:    "IFR World Robotics",
			Confidence:    model.ConfidenceHigh,
			Status:        model.StatusValidated,
			ValidatedBy:   "analyst1",
			CreatedAt:     created,
		},
		{
			ID:            "dp-2",
			SectorName:    "Mobile Robotics",
			DimensionName: "adoption_rate",
			Value:         model.TextValue("accelerating in APAC"),
			Confidence:    model.ConfidenceMedium,
			Status:        model.StatusPending,
			CreatedAt:     created,
		},
	}
}

func sampleChanges() []model.Change {
	oldVal, newVal, pct := 100.0, 130.0, 30.0
	return []model.Change{{
		Sector:        "Industrial Robotics",
		Dimension:     "market_size",
		OldValue:      &oldVal,
		NewValue:      &newVal,
		PercentChange: &pct,
		Kind:          model.ChangeIncrease,
		Significance:  model.SignificanceHigh,
		Period:        "2025-01",
		DetectedAt:    time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func TestWriteDataPointsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDataPointsCSV(&buf, samplePoints()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows

	assert.Equal(t, dataPointHeader(), records[0])
	assert.Equal(t, "dp-1", records[1][0])
	assert.Equal(t, "52.8", records[1][5])
	assert.Equal(t, "2025", records[1][6])
	assert.Equal(t, "accelerating in APAC", records[2][5])
	assert.Equal(t, "", records[2][6]) // no year recorded
}

func TestWriteChangesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChangesCSV(&buf, sampleChanges()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "30.00", records[1][4])
	assert.Equal(t, "increase", records[1][5])
}

func TestWriteDataPointsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDataPointsJSON(&buf, samplePoints()))

	var decoded []model.DataPoint
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "dp-1", decoded[0].ID)
	assert.InDelta(t, 52.8, decoded[0].Value.Number, 1e-9)
}

func TestWriteDataPointsJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDataPointsJSON(&buf, nil))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, WriteWorkbook(path, samplePoints(), sampleChanges()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	points := f.Sheet["Data Points"]
	require.NotNil(t, points)
	require.Len(t, points.Rows, 3)
	assert.Equal(t, "id", points.Rows[0].Cells[0].String())
	assert.Equal(t, "dp-1", points.Rows[1].Cells[0].String())

	changes := f.Sheet["Detected Changes"]
	require.NotNil(t, changes)
	require.Len(t, changes.Rows, 2)
	assert.Equal(t, "high", changes.Rows[1].Cells[6].String())
}

func TestFormatValid(t *testing.T) {
	assert.True(t, FormatCSV.Valid())
	assert.True(t, FormatJSON.Valid())
	assert.True(t, FormatXLSX.Valid())
	assert.False(t, Format("pdf").Valid())
}
