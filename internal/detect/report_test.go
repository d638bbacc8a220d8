package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-intel/internal/model"
)

func TestMonthlyReport(t *testing.T) {
	changes := []model.Change{
		{
			Sector: "Industrial Robotics", Dimension: "market_size",
			OldValue: fp(100), NewValue: fp(130), PercentChange: fp(30),
			Kind: model.ChangeIncrease, Significance: model.SignificanceHigh,
			Period: "2025-01", DetectedAt: time.Now(),
		},
		{
			Sector: "Mobile Robotics", Dimension: "unit_shipments",
			NewValue: fp(5000),
			Kind:     model.ChangeNew, Significance: model.SignificanceLow,
			Period: "2025-01", DetectedAt: time.Now(),
		},
	}

	out := MonthlyReport("2025-01", changes)
	assert.Contains(t, out, "Month-over-Month Changes - 2025-01")
	assert.Contains(t, out, "HIGH SIGNIFICANCE")
	assert.Contains(t, out, "LOW SIGNIFICANCE")
	assert.Contains(t, out, "Industrial Robotics / market_size")
	assert.Contains(t, out, "+30.0%")
	assert.Contains(t, out, "new value 5,000.00")
	assert.Contains(t, out, "Total: 2 significant change(s)")
}

func TestAnnualReport_Empty(t *testing.T) {
	out := AnnualReport("2025", nil)
	assert.Contains(t, out, "Year-over-Year Changes - 2025")
	assert.Contains(t, out, "No significant changes detected.")
}
