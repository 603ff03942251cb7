package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 1200, false},
		{"12.5", 1250, false},
		{"12,50", 1250, false},
		{"0.03", 3, false},
		{"-7.25", -725, false},
		{".5", 50, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1.234", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoneyDecimalString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{500, "5"},
		{550, "5.5"},
		{-3, "-0.03"},
		{0, "0"},
		{123456, "1234.56"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).DecimalString(); got != tt.want {
			t.Errorf("Money{%d}.DecimalString() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 2, 29)
	if !d.IsLastOfMonth() {
		t.Error("2024-02-29 should be the last day of its month")
	}
	if NewDate(2024, 2, 28).IsLastOfMonth() {
		t.Error("2024-02-28 is not the last day of a leap February")
	}

	// 2024-01-01 is a Monday.
	if got := NewDate(2024, 1, 1).WeekdayIndex(); got != 0 {
		t.Errorf("WeekdayIndex(2024-01-01) = %d, want 0", got)
	}
	if got := NewDate(2024, 1, 7).WeekdayIndex(); got != 6 {
		t.Errorf("WeekdayIndex(2024-01-07) = %d, want 6", got)
	}

	if got := NewDate(2024, 1, 1).DaysUntil(NewDate(2024, 1, 31)); got != 30 {
		t.Errorf("DaysUntil = %d, want 30", got)
	}

	parsed, err := ParseDate("2024-06-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if parsed.ISO() != "2024-06-15" {
		t.Errorf("ISO() = %q", parsed.ISO())
	}
	if _, err := ParseDate("15/06/2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestCashFlowRuleValidate(t *testing.T) {
	base := CashFlowRule{
		Amount: Money{Cents: 500},
		Start:  NewDate(2024, 1, 1),
		End:    NewDate(2024, 12, 31),
		Basis:  Daily,
		Name:   "Rent",
	}

	tests := []struct {
		name    string
		mutate  func(*CashFlowRule)
		wantErr error
	}{
		{"valid daily", func(r *CashFlowRule) {}, nil},
		{"valid weekly", func(r *CashFlowRule) { r.Basis = Weekly; r.DaySelector = 4 }, nil},
		{"valid monthly", func(r *CashFlowRule) { r.Basis = Monthly; r.DaySelector = 31 }, nil},
		{"valid one-time", func(r *CashFlowRule) { r.Basis = OneTime; r.OnDate = NewDate(2024, 3, 1) }, nil},
		{"empty name", func(r *CashFlowRule) { r.Name = "  " }, ErrEmptyName},
		{"zero amount", func(r *CashFlowRule) { r.Amount = Money{} }, ErrInvalidAmount},
		{"weekday too high", func(r *CashFlowRule) { r.Basis = Weekly; r.DaySelector = 7 }, ErrInvalidWeekday},
		{"weekday negative", func(r *CashFlowRule) { r.Basis = Weekly; r.DaySelector = -1 }, ErrInvalidWeekday},
		{"month day zero", func(r *CashFlowRule) { r.Basis = Monthly; r.DaySelector = 0 }, ErrInvalidMonthDay},
		{"month day 32", func(r *CashFlowRule) { r.Basis = Monthly; r.DaySelector = 32 }, ErrInvalidMonthDay},
		{"unknown basis", func(r *CashFlowRule) { r.Basis = "y" }, ErrInvalidBasis},
		{"inverted window", func(r *CashFlowRule) { r.Start, r.End = r.End, r.Start }, ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
