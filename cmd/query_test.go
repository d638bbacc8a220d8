package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-intel/internal/model"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "52.80", formatValue(model.NumberValue(52.8)))
	assert.Equal(t, "short text", formatValue(model.TextValue("short text")))
	assert.Equal(t, "{...}", formatValue(model.StructuredValue(map[string]any{"a": 1})))
	assert.Equal(t, "", formatValue(model.Value{}))

	long := formatValue(model.TextValue("a very long text value that exceeds the display width"))
	assert.Len(t, long, 30)
	assert.Contains(t, long, "...")
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "", formatPeriod(model.DataPoint{}))
	assert.Equal(t, "2025", formatPeriod(model.DataPoint{Year: 2025}))
	assert.Equal(t, "2025-Q2", formatPeriod(model.DataPoint{Year: 2025, Quarter: 2}))
	assert.Equal(t, "2025-03", formatPeriod(model.DataPoint{Year: 2025, Month: 3}))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abcdef"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatDataPoints(t *testing.T) {
	var buf bytes.Buffer
	formatDataPoints(&buf, []model.DataPoint{{
		ID:            "abcdef1234567890",
		SectorName:    "Industrial Robotics",
		DimensionName: "market_size",
		Value:         model.NumberValue(52.8),
		Year:          2025,
		Quarter:       2,
		Confidence:    model.ConfidenceHigh,
		Status:        model.StatusValidated,
		CreatedAt:     time.Now(),
	}})

	out := buf.String()
	assert.Contains(t, out, "abcdef12")
	assert.Contains(t, out, "Industrial Robotics")
	assert.Contains(t, out, "52.80")
	assert.Contains(t, out, "2025-Q2")
	assert.Contains(t, out, "validated")
}
