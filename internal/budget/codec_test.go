package budget

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func populatedBudget(t *testing.T) *Budget {
	t.Helper()
	b, err := New(core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 31), core.Money{Cents: 123450}, "Q1 Plan")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	flows := []core.CashFlowRule{
		{
			Amount:      core.Money{Cents: 250000},
			Start:       core.NewDate(2024, 1, 1),
			End:         core.NewDate(2024, 3, 31),
			Basis:       core.Monthly,
			Name:        "Salary",
			DaySelector: 28,
		},
		{
			Amount:      core.Money{Cents: -12050},
			Start:       core.NewDate(2024, 1, 1),
			End:         core.NewDate(2024, 2, 29),
			Basis:       core.Weekly,
			Name:        "Groceries",
			DaySelector: 5,
		},
		{
			Amount: core.Money{Cents: -9900},
			Start:  core.NewDate(2024, 1, 1),
			End:    core.NewDate(2024, 3, 31),
			Basis:  core.OneTime,
			Name:   "Insurance",
			OnDate: core.NewDate(2024, 2, 10),
		},
		{
			Amount: core.Money{Cents: -500},
			Start:  core.NewDate(2024, 3, 1),
			End:    core.NewDate(2024, 3, 10),
			Basis:  core.Daily,
			Name:   "Coffee",
		},
	}
	for _, rule := range flows {
		if _, err := b.CreateCashFlow(rule); err != nil {
			t.Fatalf("CreateCashFlow(%s): %v", rule.Name, err)
		}
	}
	return b
}

func TestExportImportRoundTrip(t *testing.T) {
	b := populatedBudget(t)

	doc, err := Export(b)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored, err := Import(doc)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if restored.Name() != b.Name() {
		t.Errorf("name = %q, want %q", restored.Name(), b.Name())
	}
	if restored.StartingBalance() != b.StartingBalance() {
		t.Errorf("starting balance = %v, want %v", restored.StartingBalance(), b.StartingBalance())
	}
	if !restored.Start().Equal(b.Start()) || !restored.End().Equal(b.End()) {
		t.Errorf("period = %s..%s, want %s..%s",
			restored.Start().ISO(), restored.End().ISO(), b.Start().ISO(), b.End().ISO())
	}

	// Re-exporting the restored budget must reproduce the document
	// byte-for-byte: JSON object keys marshal sorted, so equal state means
	// equal bytes.
	doc2, err := Export(restored)
	if err != nil {
		t.Fatalf("Export(restored): %v", err)
	}
	if !bytes.Equal(doc, doc2) {
		t.Error("round-tripped document differs from original export")
	}

	// Queries agree with the original aggregate.
	for _, day := range []core.Date{core.NewDate(2024, 1, 28), core.NewDate(2024, 2, 10), core.NewDate(2024, 3, 31)} {
		want, _ := b.BalanceAt(day)
		got, err := restored.BalanceAt(day)
		if err != nil {
			t.Fatalf("BalanceAt(%s): %v", day.ISO(), err)
		}
		if got != want {
			t.Errorf("BalanceAt(%s) = %d, want %d", day.ISO(), got.Cents, want.Cents)
		}
	}

	info := restored.CashFlowInfo("Insurance")
	if info.Amount.Cents != -9900 || len(info.Dates) != 1 || info.Dates[0].ISO() != "2024-02-10" {
		t.Errorf("restored one-time flow info = %+v", info)
	}
}

func TestExportDocumentShape(t *testing.T) {
	b := populatedBudget(t)
	doc, err := Export(b)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		t.Fatalf("exported document is not valid JSON: %v", err)
	}
	for _, field := range documentFields {
		if _, ok := raw[field]; !ok {
			t.Errorf("exported document missing field %q", field)
		}
	}

	var flows map[string]map[string]float64
	if err := json.Unmarshal(raw["cash flows"], &flows); err != nil {
		t.Fatalf("cash flows: %v", err)
	}
	if got := len(flows); got != b.Length() {
		t.Errorf("cash flows covers %d dates, want %d", got, b.Length())
	}
	if amount := flows["2024-01-28"]["Salary"]; amount != 2500 {
		t.Errorf(`cash flows["2024-01-28"]["Salary"] = %v, want 2500`, amount)
	}

	var details map[string]documentDetail
	if err := json.Unmarshal(raw["cash flow details"], &details); err != nil {
		t.Fatalf("cash flow details: %v", err)
	}
	if string(details["Coffee"].Day) != "null" {
		t.Errorf("daily flow day = %s, want null", details["Coffee"].Day)
	}
	if string(details["Insurance"].Day) != `"2024-02-10"` {
		t.Errorf("one-time flow day = %s, want ISO date string", details["Insurance"].Day)
	}
	if string(details["Groceries"].Day) != "5" {
		t.Errorf("weekly flow day = %s, want 5", details["Groceries"].Day)
	}
}

func TestImportMalformedDocuments(t *testing.T) {
	valid, err := Export(populatedBudget(t))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	corrupt := func(mutate func(map[string]json.RawMessage)) []byte {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(valid, &raw); err != nil {
			t.Fatalf("unmarshal valid doc: %v", err)
		}
		mutate(raw)
		out, err := json.Marshal(raw)
		if err != nil {
			t.Fatalf("remarshal: %v", err)
		}
		return out
	}

	tests := []struct {
		name string
		doc  []byte
	}{
		{"not json", []byte("definitely not json")},
		{"empty object", []byte("{}")},
		{"missing name", corrupt(func(m map[string]json.RawMessage) { delete(m, "name") })},
		{"missing ledger", corrupt(func(m map[string]json.RawMessage) { delete(m, "cash flows") })},
		{"bad starting date", corrupt(func(m map[string]json.RawMessage) { m["starting date"] = json.RawMessage(`"01/01/2024"`) })},
		{"balance not a number", corrupt(func(m map[string]json.RawMessage) { m["starting balance"] = json.RawMessage(`"lots"`) })},
		{"inverted period", corrupt(func(m map[string]json.RawMessage) {
			m["starting date"] = json.RawMessage(`"2024-12-31"`)
		})},
		{"ledger date outside period", corrupt(func(m map[string]json.RawMessage) {
			var flows map[string]json.RawMessage
			_ = json.Unmarshal(m["cash flows"], &flows)
			flows["2030-01-01"] = json.RawMessage(`{}`)
			out, _ := json.Marshal(flows)
			m["cash flows"] = out
		})},
		{"detail with unknown basis", corrupt(func(m map[string]json.RawMessage) {
			var details map[string]json.RawMessage
			_ = json.Unmarshal(m["cash flow details"], &details)
			details["Salary"] = json.RawMessage(`{"basis":"y","starting date":"2024-01-01","ending date":"2024-03-31","day":1,"amount":5}`)
			out, _ := json.Marshal(details)
			m["cash flow details"] = out
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Import(tt.doc)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("Import error = %v, want ErrMalformedDocument", err)
			}
			if b != nil {
				t.Error("Import returned a budget alongside an error")
			}
		})
	}
}
