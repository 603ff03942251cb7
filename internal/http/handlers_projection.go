package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/projection"
)

func planFromQuery(r *http.Request) (projection.Plan, error) {
	q := r.URL.Query()

	cents, err := core.ParseDecimalToCents(strings.TrimSpace(q.Get("target")))
	if err != nil {
		return projection.Plan{}, errors.New("invalid target amount")
	}

	rate := 0.0
	if raw := q.Get("rate"); raw != "" {
		rate, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return projection.Plan{}, errors.New("invalid interest rate")
		}
	}

	years := 1
	if raw := q.Get("years"); raw != "" {
		years, err = strconv.Atoi(raw)
		if err != nil {
			return projection.Plan{}, errors.New("invalid years")
		}
	}

	// Rate arrives as a percentage from the form (5 for 5%).
	return projection.Plan{
		Target:     core.Money{Cents: cents},
		AnnualRate: rate / 100,
		Years:      years,
	}, nil
}

func planError(err error) string {
	switch {
	case errors.Is(err, projection.ErrInvalidTarget):
		return "Target must be a positive amount"
	case errors.Is(err, projection.ErrInvalidRate):
		return "Interest rate must not be negative"
	case errors.Is(err, projection.ErrInvalidYears):
		return "Horizon must be at least one year"
	}
	return err.Error()
}

// handleProjection renders the savings-goal table: the monthly deposit
// required to hit a target and the year-by-year fund growth.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	plan, err := planFromQuery(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	perMonth, points, err := projection.Growth(plan)
	if err != nil {
		UnprocessableEntityError(planError(err)).Write(w)
		return
	}

	type yearRow struct {
		Year      int
		FundValue string
		Principal string
		Interest  string
	}
	q := r.URL.Query()
	data := struct {
		Target    string
		PerMonth  string
		Years     int
		TargetRaw string
		RateRaw   string
		Rows      []yearRow
	}{
		Target:    formatAmount(plan.Target),
		PerMonth:  formatAmount(perMonth),
		Years:     plan.Years,
		TargetRaw: q.Get("target"),
		RateRaw:   q.Get("rate"),
	}
	for _, p := range points {
		if p.Month%12 != 0 {
			continue
		}
		data.Rows = append(data.Rows, yearRow{
			Year:      p.Month / 12,
			FundValue: formatAmount(p.FundValue),
			Principal: formatAmount(p.Principal),
			Interest:  formatAmount(p.Interest),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "projection.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "projection.html")
		_, _ = w.Write([]byte(`<section id="projection" class="projection"><div class="placeholder">Error rendering projection</div></section>`))
	}
}

// handleProjectionCSV streams the full monthly growth table as a download.
func (s *Server) handleProjectionCSV(w http.ResponseWriter, r *http.Request) {
	plan, err := planFromQuery(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	_, points, err := projection.Growth(plan)
	if err != nil {
		UnprocessableEntityError(planError(err)).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="projection.csv"`)
	if err := projection.WriteCSV(w, points); err != nil {
		slog.ErrorContext(r.Context(), "Projection CSV write failed", "error", err)
	}
}
