// Package budget implements the cash-flow budget aggregate: a day-indexed
// ledger over a fixed period, flow metadata, and balance/aggregation queries.
package budget

import (
	"errors"
	"fmt"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/recurrence"
)

var (
	ErrInvalidPeriod = errors.New("budget end date before start date")
	ErrUnknownFlow   = errors.New("unknown cash flow")
	// ErrEmptySchedule signals that a rule produced no occurrence inside its
	// window (no such weekday or day of month in range). The flow is never
	// retained.
	ErrEmptySchedule = errors.New("no occurrence in period for selected basis")
	// ErrOutsideBudget signals a flow window escaping the budget period.
	ErrOutsideBudget = errors.New("cash flow window outside budget period")
	ErrBeforeStart   = errors.New("query date before budget start")
)

// FlowDetail is the descriptive metadata retained for a cash flow after its
// occurrence dates have been expanded into the ledger.
type FlowDetail struct {
	Basis core.Basis
	Start core.Date
	End   core.Date
	// Day is the weekday or day-of-month selector for weekly and monthly
	// flows.
	Day int
	// OnDate is the occurrence date of a one-time flow.
	OnDate core.Date
	Amount core.Money
}

// FlowInfo is the queryable summary of a flow: its per-occurrence amount
// (zero when absent) and the ordered dates it fires on.
type FlowInfo struct {
	Amount core.Money
	Dates  []core.Date
}

// PeriodTotals partitions per-flow sums over a sub-period into inflows and
// outflows. Outflow amounts are reported as positive magnitudes. A flow with
// zero net in the period appears in neither map.
type PeriodTotals struct {
	In  map[string]core.Money
	Out map[string]core.Money
}

// Budget is the aggregate owning the ledger, period bounds, starting balance
// and flow metadata. It is not safe for concurrent mutation; a budget is
// owned by exactly one caller context at a time.
type Budget struct {
	name            string
	start, end      core.Date
	startingBalance core.Money
	ledger          *Ledger
	flowNames       []string
	flowDetails     map[string]FlowDetail
}

// New creates an empty budget over [start, end] inclusive.
func New(start, end core.Date, startingBalance core.Money, name string) (*Budget, error) {
	if start.IsZero() || end.IsZero() {
		return nil, errors.New("budget dates cannot be zero")
	}
	if end.Time.Before(start.Time) {
		return nil, ErrInvalidPeriod
	}
	return &Budget{
		name:            name,
		start:           start,
		end:             end,
		startingBalance: startingBalance,
		ledger:          NewLedger(start, end),
		flowDetails:     map[string]FlowDetail{},
	}, nil
}

func (b *Budget) Name() string               { return b.name }
func (b *Budget) SetName(name string)        { b.name = name }
func (b *Budget) Start() core.Date           { return b.start }
func (b *Budget) End() core.Date             { return b.end }
func (b *Budget) StartingBalance() core.Money { return b.startingBalance }
func (b *Budget) SetStartingBalance(m core.Money) { b.startingBalance = m }

// Length returns the budget period length in days.
func (b *Budget) Length() int {
	return b.start.DaysUntil(b.end) + 1
}

// Dates returns every ledger date in ascending order.
func (b *Budget) Dates() []core.Date {
	return b.ledger.Dates()
}

// EntriesOn returns a copy of the ledger entries scheduled on a date.
func (b *Budget) EntriesOn(date core.Date) map[string]core.Money {
	return b.ledger.Entries(date)
}

// FlowNames returns the active flow names in insertion order.
func (b *Budget) FlowNames() []string {
	out := make([]string, len(b.flowNames))
	copy(out, b.flowNames)
	return out
}

// FlowDetail returns the metadata recorded for a flow.
func (b *Budget) FlowDetail(name string) (FlowDetail, bool) {
	d, ok := b.flowDetails[name]
	return d, ok
}

// uniqueName resolves a display-name collision by appending the suffix
// " (n)" with the smallest free n >= 1; the bare name counts as n = 0.
// Deterministic and idempotent for a given existing-name set.
func uniqueName(existing []string, name string) string {
	used := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		used[n] = struct{}{}
	}
	candidate := name
	for n := 1; ; n++ {
		if _, taken := used[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

// CreateCashFlow validates the rule, expands its occurrence dates, and
// records the flow under a collision-free name, which is returned. The
// operation is transactional: on any error the budget is unchanged.
func (b *Budget) CreateCashFlow(rule core.CashFlowRule) (string, error) {
	rule.Name = strings.TrimSpace(rule.Name)
	if err := rule.Validate(); err != nil {
		return "", err
	}
	if rule.Basis == core.OneTime {
		// The validity window of a one-time flow is the date itself.
		rule.Start, rule.End = rule.OnDate, rule.OnDate
	}
	if rule.Start.Before(b.start.Time) || rule.End.After(b.end.Time) {
		return "", ErrOutsideBudget
	}

	dates, err := recurrence.Expand(rule)
	if err != nil {
		return "", err
	}
	if len(dates) == 0 {
		return "", ErrEmptySchedule
	}

	name := uniqueName(b.flowNames, rule.Name)
	for _, d := range dates {
		b.ledger.Set(d, name, rule.Amount)
	}
	b.flowNames = append(b.flowNames, name)
	b.flowDetails[name] = FlowDetail{
		Basis:  rule.Basis,
		Start:  rule.Start,
		End:    rule.End,
		Day:    rule.DaySelector,
		OnDate: rule.OnDate,
		Amount: rule.Amount,
	}
	return name, nil
}

// RemoveCashFlow deletes a flow's metadata and every ledger entry it owns.
func (b *Budget) RemoveCashFlow(name string) error {
	if _, ok := b.flowDetails[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	for i, n := range b.flowNames {
		if n == name {
			b.flowNames = append(b.flowNames[:i], b.flowNames[i+1:]...)
			break
		}
	}
	delete(b.flowDetails, name)
	b.ledger.RemoveFlow(name)
	return nil
}

// CashFlowInfo returns a flow's per-occurrence amount and ordered occurrence
// dates. An absent flow yields a zero amount and no dates.
func (b *Budget) CashFlowInfo(name string) FlowInfo {
	amount, _ := b.ledger.FlowAmount(name)
	return FlowInfo{
		Amount: amount,
		Dates:  b.ledger.FlowDates(name),
	}
}

// TotalsInPeriod sums each flow's contributions on dates within
// [from, to] inclusive and partitions the results into inflows and
// outflows.
func (b *Budget) TotalsInPeriod(from, to core.Date) PeriodTotals {
	totals := PeriodTotals{
		In:  map[string]core.Money{},
		Out: map[string]core.Money{},
	}
	for _, name := range b.flowNames {
		sum := b.ledger.FlowTotalInRange(name, from, to)
		switch {
		case sum.Cents > 0:
			totals.In[name] = sum
		case sum.Cents < 0:
			totals.Out[name] = sum.Abs()
		}
	}
	return totals
}

// BalanceAt returns the starting balance plus every ledger amount from the
// budget start through the query date inclusive. The query date must not
// precede the budget start.
func (b *Budget) BalanceAt(date core.Date) (core.Money, error) {
	if date.Before(b.start.Time) {
		return core.Money{}, ErrBeforeStart
	}
	balance := b.startingBalance
	for d := b.start; !d.After(date.Time) && !d.After(b.end.Time); d = d.AddDays(1) {
		balance = balance.Add(b.ledger.DayTotal(d))
	}
	return balance, nil
}
