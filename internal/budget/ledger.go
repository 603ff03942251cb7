package budget

import (
	"bilancio/internal/core"
)

// Ledger is the day-indexed record of all cash-flow contributions across a
// budget period. Every date in the period has an entry, possibly empty; a
// flow name appears on a date only when that date is one of the flow's
// occurrence dates.
type Ledger struct {
	start, end core.Date
	dates      []core.Date
	days       map[string]map[string]core.Money // ISO date -> flow name -> amount
}

// NewLedger creates a ledger pre-populated with an empty entry for every
// date in [start, end].
func NewLedger(start, end core.Date) *Ledger {
	length := start.DaysUntil(end) + 1
	l := &Ledger{
		start: start,
		end:   end,
		dates: make([]core.Date, 0, length),
		days:  make(map[string]map[string]core.Money, length),
	}
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		l.dates = append(l.dates, d)
		l.days[d.ISO()] = map[string]core.Money{}
	}
	return l
}

// Contains reports whether the date falls inside the ledger period.
func (l *Ledger) Contains(date core.Date) bool {
	_, ok := l.days[date.ISO()]
	return ok
}

// Dates returns every ledger date in ascending order.
func (l *Ledger) Dates() []core.Date {
	out := make([]core.Date, len(l.dates))
	copy(out, l.dates)
	return out
}

// Set records a flow's contribution on a date already covered by the ledger.
func (l *Ledger) Set(date core.Date, name string, amount core.Money) {
	if entry, ok := l.days[date.ISO()]; ok {
		entry[name] = amount
	}
}

// RemoveFlow deletes every entry carrying the given flow name.
func (l *Ledger) RemoveFlow(name string) {
	for _, entry := range l.days {
		delete(entry, name)
	}
}

// Entries returns a copy of the contributions recorded on a date.
func (l *Ledger) Entries(date core.Date) map[string]core.Money {
	entry, ok := l.days[date.ISO()]
	if !ok {
		return nil
	}
	out := make(map[string]core.Money, len(entry))
	for name, amount := range entry {
		out[name] = amount
	}
	return out
}

// DayTotal sums all contributions on a single date.
func (l *Ledger) DayTotal(date core.Date) core.Money {
	var total core.Money
	for _, amount := range l.days[date.ISO()] {
		total = total.Add(amount)
	}
	return total
}

// FlowDates returns the ordered dates on which a flow contributes.
func (l *Ledger) FlowDates(name string) []core.Date {
	var out []core.Date
	for _, d := range l.dates {
		if _, ok := l.days[d.ISO()][name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// FlowAmount returns the per-occurrence amount of a flow and whether the
// flow appears anywhere in the ledger. Every occurrence of a flow carries
// the same amount by construction.
func (l *Ledger) FlowAmount(name string) (core.Money, bool) {
	for _, d := range l.dates {
		if amount, ok := l.days[d.ISO()][name]; ok {
			return amount, true
		}
	}
	return core.Money{}, false
}

// FlowTotalInRange sums a flow's contributions on dates within
// [from, to] inclusive.
func (l *Ledger) FlowTotalInRange(name string, from, to core.Date) core.Money {
	var total core.Money
	for _, d := range l.dates {
		if d.Before(from.Time) || d.After(to.Time) {
			continue
		}
		if amount, ok := l.days[d.ISO()][name]; ok {
			total = total.Add(amount)
		}
	}
	return total
}
