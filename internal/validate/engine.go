package validate

import (
	"github.com/sells-group/market-intel/internal/model"
)

// Recommendation is the engine's verdict on a data point.
type Recommendation string

const (
	RecommendValidate Recommendation = "validate"
	RecommendReview   Recommendation = "review"
	RecommendReject   Recommendation = "reject"
)

// RuleResult records one rule's outcome for one data point.
type RuleResult struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Passed   bool     `json:"passed"`
	Detail   string   `json:"detail,omitempty"`
}

// Evaluation is the full engine output for one data point.
type Evaluation struct {
	DataPointID    string         `json:"data_point_id"`
	Results        []RuleResult   `json:"results"`
	Failures       []RuleResult   `json:"failures"`
	Recommendation Recommendation `json:"recommendation"`
}

// Passed reports whether no error-severity rule failed. Warning and
// info failures do not count against a pass.
func (ev Evaluation) Passed() bool {
	for _, f := range ev.Failures {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Engine runs a rule set over data points. Evaluation is pure: running
// it twice on the same point yields the same verdict.
type Engine struct {
	rules []Rule
}

func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// NewDefaultEngine builds an engine with the standard rule set.
func NewDefaultEngine(cfg RuleConfig) *Engine {
	return NewEngine(DefaultRules(cfg))
}

// Rules exposes the configured rule set, for listing in tooling.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every rule and derives a recommendation:
// reject when an auto-reject rule fails or at least two error-severity
// rules fail, review when anything at all fails, validate otherwise.
func (e *Engine) Evaluate(dp model.DataPoint) Evaluation {
	ev := Evaluation{DataPointID: dp.ID}

	autoReject := false
	errorFailures := 0
	for _, rule := range e.rules {
		passed, detail, panicked := runCheck(rule, dp)
		res := RuleResult{
			Rule:     rule.Name,
			Severity: rule.Severity,
			Passed:   passed,
			Detail:   detail,
		}
		if panicked {
			// A broken rule must not sink the data point.
			res.Severity = SeverityWarning
		}
		ev.Results = append(ev.Results, res)
		if passed {
			continue
		}
		ev.Failures = append(ev.Failures, res)
		if panicked {
			continue
		}
		if rule.AutoReject {
			autoReject = true
		}
		if rule.Severity == SeverityError {
			errorFailures++
		}
	}

	switch {
	case autoReject || errorFailures >= 2:
		ev.Recommendation = RecommendReject
	case len(ev.Failures) > 0:
		ev.Recommendation = RecommendReview
	default:
		ev.Recommendation = RecommendValidate
	}
	return ev
}

// runCheck shields the engine from a panicking rule. A panic is
// downgraded to a warning-severity failure so one broken rule cannot
// abort or reject an otherwise valid data point.
func runCheck(rule Rule, dp model.DataPoint) (passed bool, detail string, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			passed = false
			detail = "rule panicked"
			panicked = true
		}
	}()
	passed, detail = rule.Check(dp)
	return passed, detail, false
}
