package sheets

import (
	"testing"

	"bilancio/internal/budget"
	"bilancio/internal/core"
)

func TestLedgerRows(t *testing.T) {
	start := core.NewDate(2024, 1, 1)
	end := core.NewDate(2024, 1, 5)

	b, err := budget.New(start, end, core.Money{Cents: 10000}, "Test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := b.CreateCashFlow(core.CashFlowRule{
		Name:   "Coffee",
		Amount: core.Money{Cents: -200},
		Basis:  core.Daily,
		Start:  start,
		End:    core.NewDate(2024, 1, 2),
	}); err != nil {
		t.Fatalf("CreateCashFlow: %v", err)
	}
	if _, err := b.CreateCashFlow(core.CashFlowRule{
		Name:   "Gift",
		Amount: core.Money{Cents: 5000},
		Basis:  core.OneTime,
		OnDate: core.NewDate(2024, 1, 2),
	}); err != nil {
		t.Fatalf("CreateCashFlow: %v", err)
	}

	rows := LedgerRows(b)

	want := [][]any{
		{"Date", "Cash Flow", "Amount", "Balance"},
		{"2024-01-01", "Coffee", "-2", "98"},
		{"2024-01-02", "Coffee", "-2", "146"},
		{"2024-01-02", "Gift", "50", "146"},
	}
	if len(rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(want))
	}
	for i, row := range want {
		for j, cell := range row {
			if rows[i][j] != cell {
				t.Errorf("rows[%d][%d] = %v, want %v", i, j, rows[i][j], cell)
			}
		}
	}
}
