package detect

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

// fakeReader serves taxonomy and data points from memory, newest first
// like the real store.
type fakeReader struct {
	sectors    []model.Sector
	dimensions []model.Dimension
	points     []model.DataPoint
}

func (f *fakeReader) ListSectors(context.Context) ([]model.Sector, error) {
	return f.sectors, nil
}

func (f *fakeReader) ListDimensions(context.Context) ([]model.Dimension, error) {
	return f.dimensions, nil
}

func (f *fakeReader) GetDataPoints(_ context.Context, filter store.DataPointFilter) ([]model.DataPoint, error) {
	var out []model.DataPoint
	for i := len(f.points) - 1; i >= 0; i-- {
		dp := f.points[i]
		if filter.Sector != "" && dp.SectorName != filter.Sector {
			continue
		}
		if filter.Dimension != "" && dp.DimensionName != filter.Dimension {
			continue
		}
		if filter.Year != 0 && dp.Year != filter.Year {
			continue
		}
		out = append(out, dp)
	}
	return out, nil
}

func (f *fakeReader) add(sector, dimension string, year, month int, value float64) {
	f.points = append(f.points, model.DataPoint{
		ID:            fmt.Sprintf("p%d", len(f.points)+1),
		SectorName:    sector,
		DimensionName: dimension,
		Year:          year,
		Month:         month,
		Value:         model.NumberValue(value),
		Status:        model.StatusValidated,
	})
}

func newTestDetector(r Reader) *Detector {
	return New(r, DefaultConfig())
}

// --- PercentChange ---

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		old, new float64
		want     *float64
	}{
		{"simple increase", 100, 130, fp(30)},
		{"simple decrease", 100, 75, fp(-25)},
		{"unchanged", 50, 50, fp(0)},
		{"from zero", 0, 10, fp(100)},
		{"both zero", 0, 0, nil},
		{"to zero", 50, 0, fp(-100)},
		{"negative base", -100, -50, fp(50)},
		{"rounds to two decimals", 3, 4, fp(33.33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(tt.old, tt.new)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

// --- Significance ---

func TestSignificance_Boundaries(t *testing.T) {
	d := newTestDetector(&fakeReader{})

	tests := []struct {
		pct    float64
		want   model.Significance
		report bool
	}{
		{25, model.SignificanceHigh, true},
		{20, model.SignificanceHigh, true},
		{19.99, model.SignificanceMedium, true},
		{10, model.SignificanceMedium, true},
		{9.99, model.SignificanceLow, true},
		{5, model.SignificanceLow, true},
		{4.99, model.SignificanceMinimal, false},
		{-20, model.SignificanceHigh, true},
		{-5, model.SignificanceLow, true},
		{0, model.SignificanceMinimal, false},
	}
	for _, tt := range tests {
		sig, report := d.Significance(tt.pct)
		assert.Equal(t, tt.want, sig, "pct=%v", tt.pct)
		assert.Equal(t, tt.report, report, "pct=%v", tt.pct)
	}
}

// --- Compare ---

func TestCompare_Classification(t *testing.T) {
	d := newTestDetector(&fakeReader{})
	p := Period{Year: 2025, Month: 3}

	c := d.Compare("Industrial Robotics", "market_size", fp(100), fp(130), p)
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeIncrease, c.Kind)
	assert.Equal(t, model.SignificanceHigh, c.Significance)
	assert.InDelta(t, 30, *c.PercentChange, 1e-9)
	assert.Equal(t, "2025-03", c.Period)

	c = d.Compare("Industrial Robotics", "market_size", fp(100), fp(88), p)
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeDecrease, c.Kind)
	assert.Equal(t, model.SignificanceMedium, c.Significance)

	// A rise between negative values is an increase with a positive
	// percent change.
	c = d.Compare("Industrial Robotics", "market_size", fp(-100), fp(-50), p)
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeIncrease, c.Kind)
	assert.Equal(t, model.SignificanceHigh, c.Significance)
	assert.InDelta(t, 50, *c.PercentChange, 1e-9)

	// Below the low threshold: dropped.
	assert.Nil(t, d.Compare("Industrial Robotics", "market_size", fp(100), fp(103), p))

	// Unchanged: dropped.
	assert.Nil(t, d.Compare("Industrial Robotics", "market_size", fp(100), fp(100), p))

	// Both absent: dropped.
	assert.Nil(t, d.Compare("Industrial Robotics", "market_size", nil, nil, p))
}

func TestCompare_NewAndRemoved(t *testing.T) {
	d := newTestDetector(&fakeReader{})
	p := Period{Year: 2025, Month: 3}

	c := d.Compare("Mobile Robotics", "unit_shipments", nil, fp(5000), p)
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeNew, c.Kind)
	assert.Equal(t, model.SignificanceLow, c.Significance)
	assert.Nil(t, c.OldValue)
	assert.Nil(t, c.PercentChange)

	c = d.Compare("Mobile Robotics", "unit_shipments", fp(5000), nil, p)
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeRemoved, c.Kind)
	assert.Equal(t, model.SignificanceLow, c.Significance)
	assert.Nil(t, c.NewValue)
}

func TestCompare_FromZero(t *testing.T) {
	d := newTestDetector(&fakeReader{})

	c := d.Compare("Mobile Robotics", "funding_raised", fp(0), fp(40), Period{Year: 2025, Month: 6})
	require.NotNil(t, c)
	assert.Equal(t, model.ChangeIncrease, c.Kind)
	assert.Equal(t, model.SignificanceHigh, c.Significance)
	assert.InDelta(t, 100, *c.PercentChange, 1e-9)
}

// --- Period ---

func TestPeriod_Previous(t *testing.T) {
	assert.Equal(t, Period{Year: 2025, Month: 2}, Period{Year: 2025, Month: 3}.Previous())
	assert.Equal(t, Period{Year: 2024, Month: 12}, Period{Year: 2025, Month: 1}.Previous())
	assert.Equal(t, Period{Year: 2024}, Period{Year: 2025}.Previous())
	assert.Equal(t, "2025-01", Period{Year: 2025, Month: 1}.String())
	assert.Equal(t, "2025", Period{Year: 2025}.String())
}

// --- MonthOverMonth ---

func TestMonthOverMonth_JanuaryRollover(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2024, 12, 100)
	r.add("Industrial Robotics", "market_size", 2025, 1, 130)

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeIncrease, changes[0].Kind)
	assert.Equal(t, model.SignificanceHigh, changes[0].Significance)
	assert.InDelta(t, 30, *changes[0].PercentChange, 1e-9)
	assert.Equal(t, "2025-01", changes[0].Period)
}

func TestMonthOverMonth_MultipleSectors(t *testing.T) {
	r := &fakeReader{
		sectors: []model.Sector{
			{Name: "Industrial Robotics"},
			{Name: "Mobile Robotics"},
			{Name: "Service Robotics"},
		},
		dimensions: []model.Dimension{{Name: "market_size"}, {Name: "unit_shipments"}},
	}
	r.add("Industrial Robotics", "market_size", 2025, 2, 100)
	r.add("Industrial Robotics", "market_size", 2025, 3, 112) // +12% medium
	r.add("Mobile Robotics", "unit_shipments", 2025, 2, 1000)
	r.add("Mobile Robotics", "unit_shipments", 2025, 3, 1030) // +3% dropped
	r.add("Service Robotics", "market_size", 2025, 3, 55)     // new

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	// Biggest movements first: the medium change outranks the new value.
	assert.Equal(t, "Industrial Robotics", changes[0].Sector)
	assert.Equal(t, model.SignificanceMedium, changes[0].Significance)
	assert.Equal(t, "Service Robotics", changes[1].Sector)
	assert.Equal(t, model.ChangeNew, changes[1].Kind)
	assert.Equal(t, model.SignificanceLow, changes[1].Significance)
}

func TestMonthOverMonth_SortedBySignificance(t *testing.T) {
	r := &fakeReader{
		sectors: []model.Sector{
			{Name: "Agricultural Robotics"},
			{Name: "Humanoid Robotics"},
		},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Agricultural Robotics", "market_size", 2025, 2, 100)
	r.add("Agricultural Robotics", "market_size", 2025, 3, 106) // +6% low
	r.add("Humanoid Robotics", "market_size", 2025, 2, 100)
	r.add("Humanoid Robotics", "market_size", 2025, 3, 130) // +30% high

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	// Significance outranks alphabetical sector order.
	assert.Equal(t, model.SignificanceHigh, changes[0].Significance)
	assert.Equal(t, "Humanoid Robotics", changes[0].Sector)
	assert.Equal(t, model.SignificanceLow, changes[1].Significance)
	assert.Equal(t, "Agricultural Robotics", changes[1].Sector)
}

func TestMonthOverMonth_CanceledContext(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2025, 3, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDetector(r)
	_, err := d.MonthOverMonth(ctx, 2025, 3)
	require.Error(t, err)
}

func TestMonthOverMonth_BadMonth(t *testing.T) {
	d := newTestDetector(&fakeReader{})
	_, err := d.MonthOverMonth(context.Background(), 2025, 13)
	require.Error(t, err)
}

func TestMonthOverMonth_LatestValueWins(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2025, 2, 100)
	r.add("Industrial Robotics", "market_size", 2025, 3, 90)
	r.add("Industrial Robotics", "market_size", 2025, 3, 130) // recorded later, wins

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.InDelta(t, 30, *changes[0].PercentChange, 1e-9)
}

func TestMonthOverMonth_AnnualFallback(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	// No February row exists; the annual figure stands in for it.
	r.add("Industrial Robotics", "market_size", 2025, 0, 100)
	r.add("Industrial Robotics", "market_size", 2025, 3, 112)

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.InDelta(t, 12, *changes[0].PercentChange, 1e-9)
}

func TestMonthOverMonth_ReadsEveryStatus(t *testing.T) {
	// Detection considers rows regardless of validation status; a newer
	// rejected row still supplies the period's value.
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2025, 2, 100)
	r.add("Industrial Robotics", "market_size", 2025, 3, 112)
	r.points = append(r.points, model.DataPoint{
		ID:         "p-rejected",
		SectorName: "Industrial Robotics", DimensionName: "market_size",
		Year: 2025, Month: 3, Value: model.NumberValue(150),
		Status: model.StatusRejected,
	})

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.InDelta(t, 50, *changes[0].PercentChange, 1e-9)
	assert.Equal(t, "p-rejected", changes[0].DataPointID)
}

func TestMonthOverMonth_CarriesDataPointID(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2025, 2, 100)
	r.add("Industrial Robotics", "market_size", 2025, 3, 130)

	d := newTestDetector(r)
	changes, err := d.MonthOverMonth(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	// The id belongs to the newer period's row.
	assert.Equal(t, r.points[1].ID, changes[0].DataPointID)
}

// --- YearOverYear ---

func TestYearOverYear_AnnualRowsOnly(t *testing.T) {
	r := &fakeReader{
		sectors:    []model.Sector{{Name: "Industrial Robotics"}},
		dimensions: []model.Dimension{{Name: "market_size"}},
	}
	r.add("Industrial Robotics", "market_size", 2024, 0, 100)
	r.add("Industrial Robotics", "market_size", 2025, 0, 125)
	// Monthly rows must not leak into the annual comparison.
	r.add("Industrial Robotics", "market_size", 2025, 6, 999)

	d := newTestDetector(r)
	changes, err := d.YearOverYear(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.InDelta(t, 25, *changes[0].PercentChange, 1e-9)
	assert.Equal(t, "2025", changes[0].Period)
}

func fp(f float64) *float64 { return &f }
