// Package detect compares recorded metric values across reporting periods
// and flags movements worth an analyst's attention.
package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

// Config holds the significance thresholds, expressed as absolute
// percent change. Movements below LowPct are dropped entirely.
type Config struct {
	HighPct       float64 `yaml:"high_pct" mapstructure:"high_pct"`
	MediumPct     float64 `yaml:"medium_pct" mapstructure:"medium_pct"`
	LowPct        float64 `yaml:"low_pct" mapstructure:"low_pct"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// DefaultConfig returns the standard thresholds: 20% high, 10% medium,
// 5% low, four sectors compared at a time.
func DefaultConfig() Config {
	return Config{HighPct: 20, MediumPct: 10, LowPct: 5, MaxConcurrent: 4}
}

// Reader is the slice of the store the detector needs.
type Reader interface {
	ListSectors(ctx context.Context) ([]model.Sector, error)
	ListDimensions(ctx context.Context) ([]model.Dimension, error)
	GetDataPoints(ctx context.Context, filter store.DataPointFilter) ([]model.DataPoint, error)
}

// Period identifies a reporting period. Month 0 means the annual figure.
type Period struct {
	Year  int
	Month int
}

func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Previous returns the preceding period at the same granularity; January
// rolls back to December of the prior year.
func (p Period) Previous() Period {
	if p.Month == 0 {
		return Period{Year: p.Year - 1}
	}
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Detector compares metric values between periods.
type Detector struct {
	reader Reader
	cfg    Config
	log    *zap.Logger
}

func New(reader Reader, cfg Config) *Detector {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Detector{reader: reader, cfg: cfg, log: zap.L().Named("detect")}
}

// PercentChange computes the relative movement from old to new. A nil
// result means the change is undefined (both zero). Moving off zero is
// reported as a flat 100%.
func PercentChange(oldValue, newValue float64) *float64 {
	if oldValue == 0 {
		if newValue == 0 {
			return nil
		}
		pct := 100.0
		return &pct
	}
	pct := math.Round((newValue-oldValue)/math.Abs(oldValue)*100*100) / 100
	return &pct
}

// Significance buckets a percent movement. The second return is false
// for movements too small to report.
func (d *Detector) Significance(pct float64) (model.Significance, bool) {
	abs := math.Abs(pct)
	switch {
	case abs >= d.cfg.HighPct:
		return model.SignificanceHigh, true
	case abs >= d.cfg.MediumPct:
		return model.SignificanceMedium, true
	case abs >= d.cfg.LowPct:
		return model.SignificanceLow, true
	default:
		return model.SignificanceMinimal, false
	}
}

// Compare classifies the movement of a single metric between two
// periods. It returns nil when there is nothing to report: both values
// absent, an unchanged value, or a movement under the low threshold.
func (d *Detector) Compare(sector, dimension string, oldValue, newValue *float64, period Period) *model.Change {
	now := time.Now().UTC()

	switch {
	case oldValue == nil && newValue == nil:
		return nil
	case oldValue == nil:
		return &model.Change{
			Sector: sector, Dimension: dimension,
			NewValue: newValue,
			Kind:     model.ChangeNew, Significance: model.SignificanceLow,
			Period: period.String(), DetectedAt: now,
		}
	case newValue == nil:
		return &model.Change{
			Sector: sector, Dimension: dimension,
			OldValue: oldValue,
			Kind:     model.ChangeRemoved, Significance: model.SignificanceLow,
			Period: period.String(), DetectedAt: now,
		}
	}

	pct := PercentChange(*oldValue, *newValue)
	if pct == nil || *pct == 0 {
		return nil
	}
	sig, report := d.Significance(*pct)
	if !report {
		return nil
	}

	kind := model.ChangeIncrease
	if *newValue < *oldValue {
		kind = model.ChangeDecrease
	}
	return &model.Change{
		Sector: sector, Dimension: dimension,
		OldValue: oldValue, NewValue: newValue, PercentChange: pct,
		Kind: kind, Significance: sig,
		Period: period.String(), DetectedAt: now,
	}
}

// ComparePeriods runs Compare for every dimension of one sector across
// two periods, using the most recent recorded numeric value per period.
func (d *Detector) ComparePeriods(ctx context.Context, sector string, oldPeriod, newPeriod Period) ([]model.Change, error) {
	dims, err := d.reader.ListDimensions(ctx)
	if err != nil {
		return nil, err
	}

	var changes []model.Change
	for _, dim := range dims {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "detect: scan aborted")
		}
		oldID, oldVal, err := d.latestValue(ctx, sector, dim.Name, oldPeriod)
		if err != nil {
			return nil, err
		}
		newID, newVal, err := d.latestValue(ctx, sector, dim.Name, newPeriod)
		if err != nil {
			return nil, err
		}
		if c := d.Compare(sector, dim.Name, oldVal, newVal, newPeriod); c != nil {
			c.DataPointID = newID
			if newID == "" {
				c.DataPointID = oldID
			}
			changes = append(changes, *c)
		}
	}
	return changes, nil
}

// MonthOverMonth detects changes for every sector between the given
// month and the one before it. Sectors are compared concurrently.
func (d *Detector) MonthOverMonth(ctx context.Context, year, month int) ([]model.Change, error) {
	if month < 1 || month > 12 {
		return nil, eris.Errorf("detect: month %d out of range", month)
	}
	newPeriod := Period{Year: year, Month: month}
	return d.compareAllSectors(ctx, newPeriod.Previous(), newPeriod)
}

// YearOverYear detects changes for every sector between annual figures
// of the given year and the prior year.
func (d *Detector) YearOverYear(ctx context.Context, year int) ([]model.Change, error) {
	newPeriod := Period{Year: year}
	return d.compareAllSectors(ctx, newPeriod.Previous(), newPeriod)
}

func (d *Detector) compareAllSectors(ctx context.Context, oldPeriod, newPeriod Period) ([]model.Change, error) {
	sectors, err := d.reader.ListSectors(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		all []model.Change
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.MaxConcurrent)

	for _, sec := range sectors {
		g.Go(func() error {
			changes, err := d.ComparePeriods(gctx, sec.Name, oldPeriod, newPeriod)
			if err != nil {
				return eris.Wrapf(err, "detect: compare %s", sec.Name)
			}
			mu.Lock()
			all = append(all, changes...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Biggest movements first, then stable sector/dimension order.
	rank := map[model.Significance]int{
		model.SignificanceHigh:   0,
		model.SignificanceMedium: 1,
		model.SignificanceLow:    2,
	}
	sort.Slice(all, func(i, j int) bool {
		if rank[all[i].Significance] != rank[all[j].Significance] {
			return rank[all[i].Significance] < rank[all[j].Significance]
		}
		if all[i].Sector != all[j].Sector {
			return all[i].Sector < all[j].Sector
		}
		return all[i].Dimension < all[j].Dimension
	})

	d.log.Info("detection run complete",
		zap.String("period", newPeriod.String()),
		zap.Int("sectors", len(sectors)),
		zap.Int("changes", len(all)),
	)
	return all, nil
}

// latestValue returns the id and value of the most recent numeric row
// recorded for the sector/dimension in the period. Rows are considered
// regardless of validation status.
func (d *Detector) latestValue(ctx context.Context, sector, dimension string, p Period) (string, *float64, error) {
	points, err := d.reader.GetDataPoints(ctx, store.DataPointFilter{
		Sector:    sector,
		Dimension: dimension,
		Year:      p.Year,
		Limit:     500,
	})
	if err != nil {
		return "", nil, eris.Wrapf(err, "detect: load %s/%s %s", sector, dimension, p)
	}

	// Newest-first; the first matching row wins. A monthly comparison
	// accepts rows without a month, so the annual figure serves as a
	// fallback when no month-specific value exists.
	for _, dp := range points {
		if dp.Month != p.Month && !(p.Month > 0 && dp.Month == 0) {
			continue
		}
		if p.Month == 0 && dp.Quarter != 0 {
			continue // annual comparison uses annual rows only
		}
		if v := dp.Value.NumberPtr(); v != nil {
			return dp.ID, v, nil
		}
	}
	return "", nil, nil
}
