package detect

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/market-intel/internal/model"
)

var printer = message.NewPrinter(language.English)

// MonthlyReport renders a month-over-month detection run as plain text.
func MonthlyReport(period string, changes []model.Change) string {
	return formatReport("Month-over-Month Changes - "+period, changes)
}

// AnnualReport renders a year-over-year detection run as plain text.
func AnnualReport(year string, changes []model.Change) string {
	return formatReport("Year-over-Year Changes - "+year, changes)
}

func formatReport(title string, changes []model.Change) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	if len(changes) == 0 {
		b.WriteString("No significant changes detected.\n")
		return b.String()
	}

	bySig := map[model.Significance][]model.Change{}
	for _, c := range changes {
		bySig[c.Significance] = append(bySig[c.Significance], c)
	}

	for _, sig := range []model.Significance{
		model.SignificanceHigh, model.SignificanceMedium, model.SignificanceLow,
	} {
		group := bySig[sig]
		if len(group) == 0 {
			continue
		}
		b.WriteString(strings.ToUpper(string(sig)) + " SIGNIFICANCE\n")
		for _, c := range group {
			b.WriteString("  " + formatChange(c) + "\n")
		}
		b.WriteString("\n")
	}

	printer.Fprintf(&b, "Total: %d significant change(s)\n", len(changes))
	return b.String()
}

func formatChange(c model.Change) string {
	label := c.Sector + " / " + c.Dimension
	switch c.Kind {
	case model.ChangeNew:
		return printer.Sprintf("%s: new value %.2f", label, deref(c.NewValue))
	case model.ChangeRemoved:
		return printer.Sprintf("%s: value removed (was %.2f)", label, deref(c.OldValue))
	default:
		arrow := "↑"
		if c.Kind == model.ChangeDecrease {
			arrow = "↓"
		}
		return printer.Sprintf("%s: %.2f → %.2f (%s %+.1f%%)",
			label, deref(c.OldValue), deref(c.NewValue), arrow, deref(c.PercentChange))
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
