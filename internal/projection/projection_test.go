package projection

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestMonthlyContributionZeroRate(t *testing.T) {
	per, err := MonthlyContribution(Plan{
		Target:     core.Money{Cents: 1200000}, // 12000
		AnnualRate: 0,
		Years:      10,
	})
	if err != nil {
		t.Fatalf("MonthlyContribution: %v", err)
	}
	if per.Cents != 10000 {
		t.Errorf("per month = %d cents, want 10000", per.Cents)
	}
}

func TestGrowthReachesTarget(t *testing.T) {
	plan := Plan{
		Target:     core.Money{Cents: 10000000}, // 100000
		AnnualRate: 0.05,
		Years:      20,
	}
	per, points, err := Growth(plan)
	if err != nil {
		t.Fatalf("Growth: %v", err)
	}
	if len(points) != plan.Years*12 {
		t.Fatalf("got %d points, want %d", len(points), plan.Years*12)
	}

	final := points[len(points)-1]
	// The final fund value matches the target up to the rounding of the
	// monthly contribution (at most one cent per month).
	if diff := math.Abs(float64(final.FundValue.Cents - plan.Target.Cents)); diff > float64(len(points)) {
		t.Errorf("final fund = %d cents, want ~%d", final.FundValue.Cents, plan.Target.Cents)
	}

	if final.Principal.Cents != per.Cents*int64(len(points)) {
		t.Errorf("principal = %d, want %d", final.Principal.Cents, per.Cents*int64(len(points)))
	}
	if final.Interest.Cents != final.FundValue.Cents-final.Principal.Cents {
		t.Error("interest is not fund minus principal")
	}

	// Fund value never decreases with a non-negative rate.
	for i := 1; i < len(points); i++ {
		if points[i].FundValue.Cents < points[i-1].FundValue.Cents {
			t.Fatalf("fund decreased at month %d", points[i].Month)
		}
	}
}

func TestPlanValidation(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr error
	}{
		{"zero target", Plan{Target: core.Money{}, AnnualRate: 0.05, Years: 5}, ErrInvalidTarget},
		{"negative rate", Plan{Target: core.Money{Cents: 100}, AnnualRate: -0.01, Years: 5}, ErrInvalidRate},
		{"zero years", Plan{Target: core.Money{Cents: 100}, AnnualRate: 0.05, Years: 0}, ErrInvalidYears},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := MonthlyContribution(tt.plan); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	_, points, err := Growth(Plan{Target: core.Money{Cents: 120000}, AnnualRate: 0, Years: 1})
	if err != nil {
		t.Fatalf("Growth: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, points); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 13 {
		t.Fatalf("got %d lines, want header + 12 rows", len(lines))
	}
	if lines[0] != "Month,Fund Value,Principal,Interest" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[12] != "12,1200,1200,0" {
		t.Errorf("final row = %q, want %q", lines[12], "12,1200,1200,0")
	}
}
