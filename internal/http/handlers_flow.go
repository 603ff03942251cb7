package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"bilancio/internal/budget"
	"bilancio/internal/core"
)

const flowListCacheKey = "partial:flows"

func basisLabel(b core.Basis) string {
	switch b {
	case core.Daily:
		return "Daily"
	case core.Weekly:
		return "Weekly"
	case core.Monthly:
		return "Monthly"
	case core.OneTime:
		return "One-time"
	}
	return string(b)
}

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	b := s.currentBudget()
	if b == nil {
		ConflictError("Create a budget before adding cash flows").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		BadRequestError("Cash flow name is required").Write(w)
		return
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		UnprocessableEntityError("Invalid amount").Write(w)
		return
	}
	if cents < 0 {
		cents = -cents
	}
	if r.Form.Get("kind") != "in" {
		cents = -cents
	}

	basis := core.Basis(r.Form.Get("basis"))
	if !basis.IsValid() {
		UnprocessableEntityError("Unknown recurrence").Write(w)
		return
	}

	rule := core.CashFlowRule{
		Name:        name,
		Amount:      core.Money{Cents: cents},
		Basis:       basis,
		Start:       ParseDateOrDefault(r.Form, "start", b.Start()),
		End:         ParseDateOrDefault(r.Form, "end", b.End()),
		DaySelector: ParseIntOrDefault(r.Form, "day", 0),
	}
	if basis == core.OneTime {
		date, err := parseDate(r.Form.Get("date"))
		if err != nil {
			UnprocessableEntityError("Invalid occurrence date").Write(w)
			return
		}
		rule.OnDate = date
	}

	var resolved string
	err = s.mutateBudget(func(b *budget.Budget) error {
		var err error
		resolved, err = b.CreateCashFlow(rule)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, errNoBudget):
			ConflictError("Create a budget before adding cash flows").Write(w)
		case errors.Is(err, budget.ErrEmptySchedule):
			UnprocessableEntityError("No such day of the week/month within the range selected").Write(w)
		case errors.Is(err, budget.ErrOutsideBudget):
			UnprocessableEntityError("Cash flow dates fall outside the budget period").Write(w)
		default:
			slog.WarnContext(r.Context(), "Cash flow rejected", "name", name, "error", err)
			UnprocessableEntityError(err.Error()).Write(w)
		}
		return
	}

	slog.InfoContext(r.Context(), "Cash flow created",
		"name", resolved,
		"basis", string(rule.Basis),
		"amount_cents", rule.Amount.Cents)

	NewHTMXResponse().
		TriggerFlowCreated(resolved).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Cash flow %q added", resolved)).
		BodyHTML(`<div class="success">Cash flow ` + template.HTMLEscapeString(resolved) + ` added</div>`).
		Write(w)
}

func (s *Server) handleRemoveFlow(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	name := parser.Get("name")
	if name == "" {
		BadRequestError("Cash flow name is required").Write(w)
		return
	}

	err := s.mutateBudget(func(b *budget.Budget) error {
		return b.RemoveCashFlow(name)
	})
	if err != nil {
		switch {
		case errors.Is(err, errNoBudget):
			ConflictError("No budget configured").Write(w)
		case errors.Is(err, budget.ErrUnknownFlow):
			NotFoundError(fmt.Sprintf("No cash flow named %q", name)).Write(w)
		default:
			InternalServerError("Could not remove cash flow").Write(w)
		}
		return
	}

	slog.InfoContext(r.Context(), "Cash flow removed", "name", name)

	NewHTMXResponse().
		TriggerFlowRemoved(name).
		TriggerSuccessNotification(fmt.Sprintf("Cash flow %q removed", name)).
		BodyHTML(`<div class="success">Cash flow ` + template.HTMLEscapeString(name) + ` removed</div>`).
		Write(w)
}

type flowRow struct {
	Name        string
	Basis       string
	Amount      string
	Negative    bool
	Window      string
	Occurrences int
	Total       string
}

func (s *Server) handleFlowList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if html, ok := s.partialCache.Get(flowListCacheKey); ok {
		_, _ = w.Write([]byte(html))
		return
	}

	b := s.currentBudget()
	data := struct {
		HasBudget bool
		Rows      []flowRow
	}{}

	if b != nil {
		data.HasBudget = true
		s.mu.RLock()
		for _, name := range b.FlowNames() {
			detail, ok := b.FlowDetail(name)
			if !ok {
				continue
			}
			info := b.CashFlowInfo(name)
			total := core.Money{Cents: detail.Amount.Cents * int64(len(info.Dates))}
			window := detail.Start.ISO() + " to " + detail.End.ISO()
			if detail.Basis == core.OneTime {
				window = detail.OnDate.ISO()
			}
			data.Rows = append(data.Rows, flowRow{
				Name:        name,
				Basis:       basisLabel(detail.Basis),
				Amount:      formatAmount(detail.Amount),
				Negative:    detail.Amount.Cents < 0,
				Window:      window,
				Occurrences: len(info.Dates),
				Total:       formatAmount(total),
			})
		}
		s.mu.RUnlock()
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "flows.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "flows.html")
		_, _ = w.Write([]byte(`<section id="flows" class="flows"><div class="placeholder">Error rendering cash flows</div></section>`))
		return
	}

	s.partialCache.Set(flowListCacheKey, buf.String())
	_, _ = w.Write(buf.Bytes())
}
