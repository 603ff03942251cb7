// Package projection computes compound-savings projections: the monthly
// contribution required to reach a target amount, and the month-by-month
// growth of the fund split into principal and accrued interest.
package projection

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"

	"bilancio/internal/core"
)

var (
	ErrInvalidTarget = errors.New("target must be positive")
	ErrInvalidRate   = errors.New("rate must not be negative")
	ErrInvalidYears  = errors.New("years must be at least 1")
)

// Plan describes a savings goal.
type Plan struct {
	Target core.Money
	// AnnualRate is the yearly interest rate as a decimal (0.05 for 5%).
	AnnualRate float64
	Years      int
}

// Point is the state of the fund at the end of one month.
type Point struct {
	Month     int
	FundValue core.Money
	Principal core.Money
	Interest  core.Money
}

func (p Plan) validate() error {
	if p.Target.Cents <= 0 {
		return ErrInvalidTarget
	}
	if p.AnnualRate < 0 {
		return ErrInvalidRate
	}
	if p.Years < 1 {
		return ErrInvalidYears
	}
	return nil
}

// MonthlyContribution returns the end-of-month deposit required to reach
// the plan's target, from the future-value annuity formula
// target * r / ((1+r)^n - 1) with r the monthly rate and n the number of
// months. A zero rate degenerates to target / months.
func MonthlyContribution(p Plan) (core.Money, error) {
	if err := p.validate(); err != nil {
		return core.Money{}, err
	}
	months := p.Years * 12
	target := float64(p.Target.Cents)
	if p.AnnualRate == 0 {
		return core.Money{Cents: int64(math.Round(target / float64(months)))}, nil
	}
	monthlyRate := p.AnnualRate / 12
	perMonth := target * monthlyRate / (math.Pow(1+monthlyRate, float64(months)) - 1)
	return core.Money{Cents: int64(math.Round(perMonth))}, nil
}

// Growth returns the monthly contribution together with the fund's value at
// the end of every month. Deposits compound at the end of each month, so the
// contribution is added after interest accrues.
func Growth(p Plan) (core.Money, []Point, error) {
	perMonth, err := MonthlyContribution(p)
	if err != nil {
		return core.Money{}, nil, err
	}

	months := p.Years * 12
	monthlyRate := p.AnnualRate / 12
	points := make([]Point, 0, months)
	total := 0.0
	for month := 1; month <= months; month++ {
		total = total*(1+monthlyRate) + float64(perMonth.Cents)
		fund := core.Money{Cents: int64(math.Round(total))}
		principal := core.Money{Cents: perMonth.Cents * int64(month)}
		points = append(points, Point{
			Month:     month,
			FundValue: fund,
			Principal: principal,
			Interest:  fund.Add(core.Money{Cents: -principal.Cents}),
		})
	}
	return perMonth, points, nil
}

// WriteCSV writes the growth table with a header row.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Month", "Fund Value", "Principal", "Interest"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range points {
		record := []string{
			fmt.Sprintf("%d", p.Month),
			p.FundValue.DecimalString(),
			p.Principal.DecimalString(),
			p.Interest.DecimalString(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", p.Month, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
