package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"bilancio/internal/core"
)

type overviewRow struct {
	Name    string
	Amount  string
	Percent int
}

// handlePeriodOverview renders the inflow/outflow totals over a sub-period,
// each flow with a bar sized relative to the largest total on its side.
func (s *Server) handlePeriodOverview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	b := s.currentBudget()
	if b == nil {
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Create a budget to see totals</div></section>`))
		return
	}

	s.mu.RLock()
	from := queryDateOrDefault(r, "from", b.Start())
	to := queryDateOrDefault(r, "to", b.End())
	s.mu.RUnlock()

	cacheKey := fmt.Sprintf("partial:overview:%s:%s", from.ISO(), to.ISO())
	if html, ok := s.partialCache.Get(cacheKey); ok {
		_, _ = w.Write([]byte(html))
		return
	}

	s.mu.RLock()
	totals := b.TotalsInPeriod(from, to)
	s.mu.RUnlock()

	data := struct {
		From     string
		To       string
		In       []overviewRow
		Out      []overviewRow
		NetIn    string
		NetOut   string
		Net      string
		Negative bool
	}{
		From: from.ISO(),
		To:   to.ISO(),
	}

	var inTotal, outTotal int64
	data.In, inTotal = overviewRows(totals.In)
	data.Out, outTotal = overviewRows(totals.Out)
	data.NetIn = formatAmount(core.Money{Cents: inTotal})
	data.NetOut = formatAmount(core.Money{Cents: outTotal})
	net := inTotal - outTotal
	data.Net = formatAmount(core.Money{Cents: net})
	data.Negative = net < 0

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "overview.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "overview.html")
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Error rendering overview</div></section>`))
		return
	}

	s.partialCache.Set(cacheKey, buf.String())
	_, _ = w.Write(buf.Bytes())
}

// overviewRows sorts a totals map by descending magnitude and scales each
// bar against the largest entry. Returns the rows and the summed total.
func overviewRows(totals map[string]core.Money) ([]overviewRow, int64) {
	names := make([]string, 0, len(totals))
	var max, sum int64
	for name, m := range totals {
		names = append(names, name)
		sum += m.Cents
		if m.Cents > max {
			max = m.Cents
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]].Cents != totals[names[j]].Cents {
			return totals[names[i]].Cents > totals[names[j]].Cents
		}
		return names[i] < names[j]
	})

	rows := make([]overviewRow, 0, len(names))
	for _, name := range names {
		pct := 100
		if max > 0 {
			pct = int(totals[name].Cents * 100 / max)
		}
		rows = append(rows, overviewRow{
			Name:    name,
			Amount:  formatAmount(totals[name]),
			Percent: pct,
		})
	}
	return rows, sum
}

const (
	chartWidth  = 600
	chartHeight = 200
	chartPad    = 10
)

// handleBalanceSeries renders the running balance over the whole budget
// period as an inline SVG polyline.
func (s *Server) handleBalanceSeries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	b := s.currentBudget()
	if b == nil {
		_, _ = w.Write([]byte(`<section id="balance" class="balance"><div class="placeholder">Create a budget to see the balance curve</div></section>`))
		return
	}

	const cacheKey = "partial:balance"
	if html, ok := s.partialCache.Get(cacheKey); ok {
		_, _ = w.Write([]byte(html))
		return
	}

	s.mu.RLock()
	dates := b.Dates()
	balances := make([]int64, len(dates))
	var min, max int64
	for i, d := range dates {
		bal, err := b.BalanceAt(d)
		if err != nil {
			s.mu.RUnlock()
			slog.ErrorContext(r.Context(), "Balance computation failed", "date", d.ISO(), "error", err)
			_, _ = w.Write([]byte(`<section id="balance" class="balance"><div class="placeholder">Error computing balances</div></section>`))
			return
		}
		balances[i] = bal.Cents
		if i == 0 || bal.Cents < min {
			min = bal.Cents
		}
		if i == 0 || bal.Cents > max {
			max = bal.Cents
		}
	}
	start, end := b.Start(), b.End()
	final := balances[len(balances)-1]
	s.mu.RUnlock()

	data := struct {
		Width    int
		Height   int
		Points   string
		Min      string
		Max      string
		Start    string
		End      string
		Final    string
		Negative bool
	}{
		Width:    chartWidth,
		Height:   chartHeight,
		Points:   polylinePoints(balances, min, max),
		Min:      formatAmount(core.Money{Cents: min}),
		Max:      formatAmount(core.Money{Cents: max}),
		Start:    start.ISO(),
		End:      end.ISO(),
		Final:    formatAmount(core.Money{Cents: final}),
		Negative: final < 0,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "balance.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "balance.html")
		_, _ = w.Write([]byte(`<section id="balance" class="balance"><div class="placeholder">Error rendering balance</div></section>`))
		return
	}

	s.partialCache.Set(cacheKey, buf.String())
	_, _ = w.Write(buf.Bytes())
}

// polylinePoints maps the balance series onto SVG coordinates. A flat
// series draws a horizontal midline.
func polylinePoints(balances []int64, min, max int64) string {
	span := max - min
	innerW := float64(chartWidth - 2*chartPad)
	innerH := float64(chartHeight - 2*chartPad)

	var sb strings.Builder
	for i, bal := range balances {
		x := float64(chartPad)
		if len(balances) > 1 {
			x += innerW * float64(i) / float64(len(balances)-1)
		}
		y := float64(chartHeight) / 2
		if span > 0 {
			y = float64(chartPad) + innerH*(1-float64(bal-min)/float64(span))
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	return sb.String()
}

func queryDateOrDefault(r *http.Request, key string, def core.Date) core.Date {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	d, err := parseDate(raw)
	if err != nil {
		return def
	}
	return d
}
