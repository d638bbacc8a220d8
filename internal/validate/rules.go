// Package validate scores recorded data points against quality rules
// and drives them through the review workflow.
package validate

import (
	"fmt"
	"time"

	"github.com/sells-group/market-intel/internal/model"
)

// Severity ranks how serious a rule failure is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule is one quality check. Check returns whether the point passes and
// an optional detail for the reviewer. AutoReject marks rules whose
// failure alone justifies rejection.
type Rule struct {
	Name        string
	Description string
	Severity    Severity
	AutoReject  bool
	Check       func(dp model.DataPoint) (bool, string)
}

// RuleConfig bounds the plausibility checks.
type RuleConfig struct {
	MaxMarketSize float64 `yaml:"max_market_size" mapstructure:"max_market_size"`
	MinGrowthRate float64 `yaml:"min_growth_rate" mapstructure:"min_growth_rate"`
	MaxGrowthRate float64 `yaml:"max_growth_rate" mapstructure:"max_growth_rate"`
	MaxYearAge    int     `yaml:"max_year_age" mapstructure:"max_year_age"`
}

// DefaultRuleConfig returns the standard plausibility bounds: market
// sizes up to 1000 USD billions, growth between -100% and 500%, data no
// older than five years before it stops counting as recent.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		MaxMarketSize: 1000,
		MinGrowthRate: -100,
		MaxGrowthRate: 500,
		MaxYearAge:    5,
	}
}

// DefaultRules builds the standard rule set.
func DefaultRules(cfg RuleConfig) []Rule {
	return []Rule{
		{
			Name:        "value_present",
			Description: "data point carries a value",
			Severity:    SeverityError,
			AutoReject:  true,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.Value.IsZero() {
					return false, "no value recorded"
				}
				return true, ""
			},
		},
		{
			Name:        "reasonable_market_size",
			Description: "market size within plausible bounds",
			Severity:    SeverityError,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.DimensionName != "market_size" {
					return true, ""
				}
				v := dp.Value.NumberPtr()
				if v == nil {
					return true, "" // value_present covers absence
				}
				if *v < 0 || *v > cfg.MaxMarketSize {
					return false, fmt.Sprintf("market size %.2f outside [0, %.0f]", *v, cfg.MaxMarketSize)
				}
				return true, ""
			},
		},
		{
			Name:        "reasonable_growth_rate",
			Description: "growth rate within plausible bounds",
			Severity:    SeverityError,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.DimensionName != "market_growth_rate" {
					return true, ""
				}
				v := dp.Value.NumberPtr()
				if v == nil {
					return true, ""
				}
				if *v < cfg.MinGrowthRate || *v > cfg.MaxGrowthRate {
					return false, fmt.Sprintf("growth rate %.2f outside [%.0f, %.0f]",
						*v, cfg.MinGrowthRate, cfg.MaxGrowthRate)
				}
				return true, ""
			},
		},
		{
			Name:        "has_source",
			Description: "data point cites a source",
			Severity:    SeverityWarning,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.SourceID == "" {
					return false, "no source attached"
				}
				return true, ""
			},
		},
		{
			Name:        "has_year",
			Description: "data point states its reporting year",
			Severity:    SeverityWarning,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.Year == 0 {
					return false, "no year recorded"
				}
				return true, ""
			},
		},
		{
			Name:        "valid_confidence",
			Description: "confidence level is one of the known values",
			Severity:    SeverityWarning,
			Check: func(dp model.DataPoint) (bool, string) {
				if !dp.Confidence.Valid() {
					return false, fmt.Sprintf("unknown confidence %q", dp.Confidence)
				}
				return true, ""
			},
		},
		{
			Name:        "recent_year",
			Description: "data is recent enough to act on",
			Severity:    SeverityInfo,
			Check: func(dp model.DataPoint) (bool, string) {
				if dp.Year == 0 {
					return true, "" // has_year covers absence
				}
				cutoff := time.Now().Year() - cfg.MaxYearAge
				if dp.Year < cutoff {
					return false, fmt.Sprintf("year %d is older than %d years", dp.Year, cfg.MaxYearAge)
				}
				return true, ""
			},
		},
	}
}
