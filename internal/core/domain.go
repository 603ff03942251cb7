package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	Daily   Basis = "d"
	Weekly  Basis = "w"
	Monthly Basis = "m"
	OneTime Basis = "o"
)

type (
	// Basis identifies the recurrence pattern of a cash flow.
	Basis string

	// Date is a calendar date with day resolution. The time component is
	// always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// CashFlowRule describes a cash flow at creation time: signed amount,
	// validity window, recurrence basis and the basis-dependent day selector.
	// The rule is transient; once expanded into occurrence dates it survives
	// only as descriptive metadata on the budget.
	CashFlowRule struct {
		Amount Money
		Start  Date
		End    Date
		Basis  Basis
		Name   string
		// DaySelector is the weekday 0..6 (Monday=0) for Weekly and the
		// day of month 1..31 for Monthly. Unused for other bases.
		DaySelector int
		// OnDate is the single occurrence date for OneTime flows.
		OnDate Date
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidBasis    = errors.New("invalid basis")
	ErrInvalidWindow   = errors.New("end date before start date")
	ErrInvalidWeekday  = errors.New("weekday out of range")
	ErrInvalidMonthDay = errors.New("day of month out of range")
	ErrEmptyName       = errors.New("empty name")
)

// IsValid reports whether b is one of the four known bases.
func (b Basis) IsValid() bool {
	switch b {
	case Daily, Weekly, Monthly, OneTime:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t.UTC()}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of days from d to other (negative if other
// is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// WeekdayIndex returns the weekday with Monday=0 .. Sunday=6.
func (d Date) WeekdayIndex() int {
	return (int(d.Time.Weekday()) + 6) % 7
}

// IsLastOfMonth reports whether d is the last calendar day of its month.
func (d Date) IsLastOfMonth() bool {
	return d.AddDays(1).Time.Month() != d.Time.Month()
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDecimalToCents parses a decimal amount ("12", "12.5", "12,50") into
// cents. At most two fractional digits are accepted.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := units * 100
	if frac != "" {
		if len(frac) > 2 {
			return 0, ErrInvalidAmount
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		cents += f
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// DecimalString formats the amount in units with up to two decimals and no
// trailing zeros ("5", "5.5", "-0.03").
func (m Money) DecimalString() string {
	c := m.Cents
	neg := c < 0
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if neg {
		s = "-" + s
	}
	return s
}

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// MarshalJSON writes the amount as a plain JSON number in units, matching
// the budget document format.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.DecimalString()), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	m.Cents = int64(math.Round(f * 100))
	return nil
}

func (r CashFlowRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if r.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	switch r.Basis {
	case Daily:
	case Weekly:
		if r.DaySelector < 0 || r.DaySelector > 6 {
			return ErrInvalidWeekday
		}
	case Monthly:
		if r.DaySelector < 1 || r.DaySelector > 31 {
			return ErrInvalidMonthDay
		}
	case OneTime:
		if r.OnDate.IsZero() {
			return errors.New("missing date for one-time flow")
		}
	default:
		return ErrInvalidBasis
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("date cannot be zero")
	}
	if r.End.Time.Before(r.Start.Time) {
		return ErrInvalidWindow
	}
	return nil
}
