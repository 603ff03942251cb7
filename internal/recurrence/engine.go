// Package recurrence expands cash-flow rules into concrete occurrence dates.
//
// Each basis (daily, weekly, monthly, one-time) has its own expander that
// encapsulates the algorithm for that recurrence pattern.
package recurrence

import (
	"fmt"

	"bilancio/internal/core"
)

// Expander is the strategy interface for expanding a cash-flow rule into the
// ordered set of calendar dates it fires on. Expansion is finite and
// deterministic; the same rule always yields the same dates.
type Expander interface {
	Expand(rule core.CashFlowRule) []core.Date
}

// DailyExpander implements Expander for daily cash flows.
type DailyExpander struct{}

// Expand returns every date in the rule's validity window, inclusive.
func (DailyExpander) Expand(rule core.CashFlowRule) []core.Date {
	dates := make([]core.Date, 0, rule.Start.DaysUntil(rule.End)+1)
	for d := rule.Start; !d.After(rule.End.Time); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// WeeklyExpander implements Expander for weekly cash flows.
type WeeklyExpander struct{}

// Expand returns every in-window date whose weekday (Monday=0) equals the
// rule's day selector.
func (WeeklyExpander) Expand(rule core.CashFlowRule) []core.Date {
	var dates []core.Date
	for d := rule.Start; !d.After(rule.End.Time); d = d.AddDays(1) {
		if d.WeekdayIndex() == rule.DaySelector {
			dates = append(dates, d)
		}
	}
	return dates
}

// MonthlyExpander implements Expander for monthly cash flows.
type MonthlyExpander struct{}

// Expand returns every in-window date whose day of month equals the rule's
// day selector, clamping to the last day of short months: when the selector
// exceeds a month's length, the flow fires on that month's last day instead
// (selector 31 fires on Feb 29 in a leap year). The clamp is expressed as
// "day < selector and last day of month", the historical behavior of this
// format.
func (MonthlyExpander) Expand(rule core.CashFlowRule) []core.Date {
	var dates []core.Date
	for d := rule.Start; !d.After(rule.End.Time); d = d.AddDays(1) {
		day := d.Day()
		if day == rule.DaySelector || (day < rule.DaySelector && d.IsLastOfMonth()) {
			dates = append(dates, d)
		}
	}
	return dates
}

// OneTimeExpander implements Expander for one-time cash flows.
type OneTimeExpander struct{}

// Expand returns exactly the rule's single occurrence date.
func (OneTimeExpander) Expand(rule core.CashFlowRule) []core.Date {
	return []core.Date{rule.OnDate}
}

// expanders maps bases to their expanders for O(1) dispatch.
var expanders = map[core.Basis]Expander{
	core.Daily:   DailyExpander{},
	core.Weekly:  WeeklyExpander{},
	core.Monthly: MonthlyExpander{},
	core.OneTime: OneTimeExpander{},
}

// GetExpander returns the expander for a basis, or an error if the basis is
// not supported.
func GetExpander(basis core.Basis) (Expander, error) {
	e, ok := expanders[basis]
	if !ok {
		return nil, fmt.Errorf("unknown basis: %s", basis)
	}
	return e, nil
}

// RegisterExpander registers a custom expander for a new basis.
func RegisterExpander(basis core.Basis, e Expander) {
	expanders[basis] = e
}

// Expand validates the rule and returns its ordered occurrence dates.
func Expand(rule core.CashFlowRule) ([]core.Date, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	e, err := GetExpander(rule.Basis)
	if err != nil {
		return nil, err
	}
	return e.Expand(rule), nil
}
