package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
)

func goodDataPoint() model.DataPoint {
	return model.DataPoint{
		ID:            "dp-1",
		DimensionName: "market_size",
		Value:         model.NumberValue(52.8),
		Year:          time.Now().Year(),
		SourceID:      "src-1",
		Confidence:    model.ConfidenceHigh,
		Status:        model.StatusPending,
	}
}

func TestEvaluate_AllRulesPass(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	ev := e.Evaluate(goodDataPoint())
	assert.Equal(t, RecommendValidate, ev.Recommendation)
	assert.Empty(t, ev.Failures)
	assert.Len(t, ev.Results, 7)
}

func TestEvaluate_MissingValueAutoRejects(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.Value = model.Value{}

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReject, ev.Recommendation)
	require.NotEmpty(t, ev.Failures)
	assert.Equal(t, "value_present", ev.Failures[0].Rule)
}

func TestEvaluate_TwoErrorFailuresReject(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "a", Severity: SeverityError, Check: func(model.DataPoint) (bool, string) { return false, "" }},
		{Name: "b", Severity: SeverityError, Check: func(model.DataPoint) (bool, string) { return false, "" }},
	})

	ev := e.Evaluate(goodDataPoint())
	assert.Equal(t, RecommendReject, ev.Recommendation)
}

func TestEvaluate_SingleErrorFailureReviews(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.Value = model.NumberValue(5000) // above the market size ceiling

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReview, ev.Recommendation)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, "reasonable_market_size", ev.Failures[0].Rule)
	assert.Contains(t, ev.Failures[0].Detail, "outside")
}

func TestEvaluate_WarningsOnlyReview(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.SourceID = ""
	dp.Year = 0

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReview, ev.Recommendation)
	assert.Len(t, ev.Failures, 2)
}

func TestEvaluate_GrowthRateBounds(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.DimensionName = "market_growth_rate"
	dp.Value = model.NumberValue(650)

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReview, ev.Recommendation)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, "reasonable_growth_rate", ev.Failures[0].Rule)

	dp.Value = model.NumberValue(499)
	ev = e.Evaluate(dp)
	assert.Equal(t, RecommendValidate, ev.Recommendation)
}

func TestEvaluate_TextValueSkipsNumericBounds(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.Value = model.TextValue("growing steadily")

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendValidate, ev.Recommendation)
}

func TestEvaluate_OldYearIsInfoOnly(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.Year = time.Now().Year() - 10

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReview, ev.Recommendation)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, SeverityInfo, ev.Failures[0].Severity)
}

func TestEvaluate_InvalidConfidenceWarns(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())

	dp := goodDataPoint()
	dp.Confidence = "certain"

	ev := e.Evaluate(dp)
	assert.Equal(t, RecommendReview, ev.Recommendation)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, "valid_confidence", ev.Failures[0].Rule)
}

func TestEvaluate_PanickingRuleDowngradedToWarning(t *testing.T) {
	// Even an auto-reject error rule only warns when it panics.
	e := NewEngine([]Rule{
		{Name: "explodes", Severity: SeverityError, AutoReject: true, Check: func(model.DataPoint) (bool, string) {
			panic("boom")
		}},
	})

	ev := e.Evaluate(goodDataPoint())
	assert.Equal(t, RecommendReview, ev.Recommendation)
	require.Len(t, ev.Failures, 1)
	assert.Equal(t, SeverityWarning, ev.Failures[0].Severity)
	assert.Equal(t, "rule panicked", ev.Failures[0].Detail)
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := NewDefaultEngine(DefaultRuleConfig())
	dp := goodDataPoint()
	dp.SourceID = ""

	first := e.Evaluate(dp)
	second := e.Evaluate(dp)
	assert.Equal(t, first.Recommendation, second.Recommendation)
	assert.Equal(t, first.Failures, second.Failures)
}
