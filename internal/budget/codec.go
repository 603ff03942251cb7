package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"bilancio/internal/core"
)

// ErrMalformedDocument is the single failure outcome of Import: any
// structural problem in the document collapses to it. The budget is never
// partially reconstructed.
var ErrMalformedDocument = errors.New("malformed budget document")

// documentDetail mirrors the "cash flow details" entries of the budget
// document. Day is a weekday or day-of-month integer for weekly/monthly
// flows, an ISO date string for one-time flows, and null for daily flows.
type documentDetail struct {
	Basis  string          `json:"basis"`
	Start  string          `json:"starting date"`
	End    string          `json:"ending date"`
	Day    json.RawMessage `json:"day"`
	Amount core.Money      `json:"amount"`
}

// documentFields lists the top-level keys a budget document must carry.
var documentFields = []string{
	"name",
	"starting balance",
	"starting date",
	"ending date",
	"cash flow details",
	"cash flows",
}

// Export encodes the budget as an indented JSON document. Occurrences are
// stored fully expanded; the recurrence engine never runs on import.
func Export(b *Budget) ([]byte, error) {
	details := make(map[string]documentDetail, len(b.flowDetails))
	for name, d := range b.flowDetails {
		detail := documentDetail{
			Basis:  string(d.Basis),
			Start:  d.Start.ISO(),
			End:    d.End.ISO(),
			Amount: d.Amount,
		}
		switch d.Basis {
		case core.Weekly, core.Monthly:
			detail.Day = json.RawMessage(fmt.Sprintf("%d", d.Day))
		case core.OneTime:
			detail.Day = json.RawMessage(`"` + d.OnDate.ISO() + `"`)
		default:
			detail.Day = json.RawMessage("null")
		}
		details[name] = detail
	}

	flows := make(map[string]map[string]core.Money, len(b.ledger.dates))
	for _, d := range b.ledger.dates {
		flows[d.ISO()] = b.ledger.days[d.ISO()]
	}

	doc := map[string]any{
		"name":              b.name,
		"starting balance":  b.startingBalance,
		"starting date":     b.start.ISO(),
		"ending date":       b.end.ISO(),
		"cash flow details": details,
		"cash flows":        flows,
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode budget document: %w", err)
	}
	return out, nil
}

// Import reconstructs a budget from an exported document. Ledger entries and
// flow details are installed verbatim; flow names are re-derived from the
// detail keys. Any structural problem yields ErrMalformedDocument and no
// budget.
func Import(data []byte) (*Budget, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed(err)
	}
	for _, field := range documentFields {
		if _, ok := raw[field]; !ok {
			return nil, malformed(fmt.Errorf("missing field %q", field))
		}
	}

	var name string
	if err := json.Unmarshal(raw["name"], &name); err != nil {
		return nil, malformed(err)
	}
	var startingBalance core.Money
	if err := json.Unmarshal(raw["starting balance"], &startingBalance); err != nil {
		return nil, malformed(err)
	}
	start, err := parseDateField(raw["starting date"])
	if err != nil {
		return nil, malformed(err)
	}
	end, err := parseDateField(raw["ending date"])
	if err != nil {
		return nil, malformed(err)
	}

	var details map[string]documentDetail
	if err := json.Unmarshal(raw["cash flow details"], &details); err != nil {
		return nil, malformed(err)
	}
	var flows map[string]map[string]core.Money
	if err := json.Unmarshal(raw["cash flows"], &flows); err != nil {
		return nil, malformed(err)
	}

	b, err := New(start, end, startingBalance, name)
	if err != nil {
		return nil, malformed(err)
	}

	for iso, entry := range flows {
		date, err := core.ParseDate(iso)
		if err != nil {
			return nil, malformed(err)
		}
		if !b.ledger.Contains(date) {
			return nil, malformed(fmt.Errorf("ledger date %s outside budget period", iso))
		}
		for flowName, amount := range entry {
			b.ledger.Set(date, flowName, amount)
		}
	}

	for flowName, d := range details {
		detail, err := decodeDetail(d)
		if err != nil {
			return nil, malformed(fmt.Errorf("flow %q: %w", flowName, err))
		}
		b.flowDetails[flowName] = detail
	}
	b.flowNames = make([]string, 0, len(details))
	for flowName := range details {
		b.flowNames = append(b.flowNames, flowName)
	}
	sort.Strings(b.flowNames)

	return b, nil
}

func decodeDetail(d documentDetail) (FlowDetail, error) {
	basis := core.Basis(d.Basis)
	if !basis.IsValid() {
		return FlowDetail{}, fmt.Errorf("unknown basis %q", d.Basis)
	}
	start, err := core.ParseDate(d.Start)
	if err != nil {
		return FlowDetail{}, err
	}
	end, err := core.ParseDate(d.End)
	if err != nil {
		return FlowDetail{}, err
	}
	detail := FlowDetail{
		Basis:  basis,
		Start:  start,
		End:    end,
		Amount: d.Amount,
	}
	switch basis {
	case core.Weekly, core.Monthly:
		if err := json.Unmarshal(d.Day, &detail.Day); err != nil {
			return FlowDetail{}, fmt.Errorf("day selector: %w", err)
		}
	case core.OneTime:
		var iso string
		if err := json.Unmarshal(d.Day, &iso); err != nil {
			return FlowDetail{}, fmt.Errorf("day selector: %w", err)
		}
		if detail.OnDate, err = core.ParseDate(iso); err != nil {
			return FlowDetail{}, err
		}
	}
	return detail, nil
}

func parseDateField(raw json.RawMessage) (core.Date, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return core.Date{}, err
	}
	return core.ParseDate(s)
}

func malformed(cause error) error {
	return fmt.Errorf("%w: %v", ErrMalformedDocument, cause)
}
