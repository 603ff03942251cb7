package http

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/core"
)

var errNoBudget = errors.New("no budget configured")

const maxImportBytes = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	defStart := core.NewDate(now.Year(), int(now.Month()), now.Day())
	defEnd := core.Date{Time: defStart.AddDate(0, s.defaultMonths, 0)}

	data := struct {
		HasBudget    bool
		Name         string
		Start        string
		End          string
		Balance      string
		Days         int
		DefaultStart string
		DefaultEnd   string
		CanSnapshot  bool
	}{
		DefaultStart: defStart.ISO(),
		DefaultEnd:   defEnd.ISO(),
		CanSnapshot:  s.snapshots != nil,
	}

	s.mu.RLock()
	if b := s.budget; b != nil {
		data.HasBudget = true
		data.Name = b.Name()
		data.Start = b.Start().ISO()
		data.End = b.End().ISO()
		data.Balance = formatAmount(b.StartingBalance())
		data.Days = b.Length()
	}
	s.mu.RUnlock()

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		name = "My Budget"
	}

	balanceStr := strings.TrimSpace(r.Form.Get("balance"))
	cents := int64(0)
	if balanceStr != "" {
		var err error
		cents, err = core.ParseDecimalToCents(balanceStr)
		if err != nil {
			UnprocessableEntityError("Invalid starting balance").Write(w)
			return
		}
	}

	now := time.Now()
	defStart := core.NewDate(now.Year(), int(now.Month()), now.Day())
	start := ParseDateOrDefault(r.Form, "start", defStart)
	end := ParseDateOrDefault(r.Form, "end", core.Date{Time: start.AddDate(0, s.defaultMonths, 0)})

	b, err := budget.New(start, end, core.Money{Cents: cents}, name)
	if err != nil {
		if errors.Is(err, budget.ErrInvalidPeriod) {
			UnprocessableEntityError("End date must not precede the start date").Write(w)
			return
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	s.replaceBudget(b)

	slog.InfoContext(r.Context(), "Budget created",
		"name", name,
		"start", start.ISO(),
		"end", end.ISO(),
		"days", b.Length())

	NewHTMXResponse().
		TriggerBudgetCreated(name).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Budget %q created: %d days", name, b.Length())).
		BodyHTML(`<div class="success">Budget ` + template.HTMLEscapeString(name) + ` created</div>`).
		Write(w)
}

// handleUpdateBudget renames the budget and/or changes its starting
// balance. Absent fields are left untouched.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	balanceStr := strings.TrimSpace(r.Form.Get("balance"))
	if name == "" && balanceStr == "" {
		BadRequestError("Nothing to update").Write(w)
		return
	}

	var cents int64
	if balanceStr != "" {
		var err error
		cents, err = core.ParseDecimalToCents(balanceStr)
		if err != nil {
			UnprocessableEntityError("Invalid starting balance").Write(w)
			return
		}
	}

	err := s.mutateBudget(func(b *budget.Budget) error {
		if name != "" {
			b.SetName(name)
		}
		if balanceStr != "" {
			b.SetStartingBalance(core.Money{Cents: cents})
		}
		return nil
	})
	if err != nil {
		ConflictError("No budget configured").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Budget updated", "name", name, "balance_changed", balanceStr != "")

	NewHTMXResponse().
		TriggerBudgetUpdated().
		TriggerSuccessNotification("Budget updated").
		BodyHTML(`<div class="success">Budget updated</div>`).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if s.currentBudget() == nil {
		ConflictError("No budget configured").Write(w)
		return
	}

	s.replaceBudget(nil)
	slog.InfoContext(r.Context(), "Budget deleted")

	NewHTMXResponse().
		TriggerBudgetDeleted().
		TriggerSuccessNotification("Budget deleted").
		BodyHTML(`<div class="success">Budget deleted</div>`).
		Write(w)
}

func (s *Server) handleExportBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	b := s.currentBudget()
	if b == nil {
		NotFoundError("No budget to export. Create one first.").Write(w)
		return
	}

	s.mu.RLock()
	doc, err := budget.Export(b)
	s.mu.RUnlock()
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget export failed", "error", err, "budget", b.Name())
		InternalServerError("Could not export budget").Write(w)
		return
	}

	filename := strings.ReplaceAll(b.Name(), `"`, "") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleImportBudget replaces the active budget with one parsed from an
// uploaded document. Any parse or validation failure yields the same
// import-failed outcome; the active budget is untouched.
func (s *Server) handleImportBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		BadRequestError("Invalid upload").Write(w)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		BadRequestError("Missing budget file").Write(w)
		return
	}
	defer file.Close()

	doc, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		BadRequestError("Could not read budget file").Write(w)
		return
	}

	b, err := budget.Import(doc)
	if err != nil {
		slog.WarnContext(r.Context(), "Budget import rejected", "error", err)
		NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerErrorNotification("Budget import failed").
			BodyHTML(`<div class="error">Budget import failed</div>`).
			Write(w)
		return
	}

	s.replaceBudget(b)

	slog.InfoContext(r.Context(), "Budget imported",
		"name", b.Name(),
		"start", b.Start().ISO(),
		"end", b.End().ISO(),
		"flows", len(b.FlowNames()))

	NewHTMXResponse().
		TriggerBudgetImported(b.Name()).
		TriggerSuccessNotification(fmt.Sprintf("Budget %q imported", b.Name())).
		BodyHTML(`<div class="success">Budget ` + template.HTMLEscapeString(b.Name()) + ` imported</div>`).
		Write(w)
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if s.snapshots == nil {
		ErrorResponse(http.StatusServiceUnavailable, "Snapshot archive not configured").Write(w)
		return
	}

	b := s.currentBudget()
	if b == nil {
		ConflictError("No budget to save. Create one first.").Write(w)
		return
	}

	s.mu.RLock()
	doc, err := budget.Export(b)
	s.mu.RUnlock()
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget export failed", "error", err, "budget", b.Name())
		InternalServerError("Could not export budget").Write(w)
		return
	}

	id, err := s.snapshots.SaveSnapshot(r.Context(), b.Name(), doc)
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot save failed", "error", err, "budget", b.Name())
		InternalServerError("Could not save snapshot").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerSnapshotSaved(id).
		TriggerSuccessNotification("Snapshot saved").
		BodyHTML(`<div class="success">Snapshot saved</div>`).
		Write(w)
}

func (s *Server) handleSnapshotList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if s.snapshots == nil {
		_, _ = w.Write([]byte(`<section id="snapshots" class="snapshots"><div class="placeholder">Snapshot archive not configured</div></section>`))
		return
	}

	snaps, err := s.snapshots.ListSnapshots(r.Context(), 20)
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot list failed", "error", err)
		_, _ = w.Write([]byte(`<section id="snapshots" class="snapshots"><div class="placeholder">Error loading snapshots</div></section>`))
		return
	}

	type row struct {
		ID      string
		Budget  string
		Created string
		Status  string
	}
	data := struct {
		Rows []row
	}{}
	for _, snap := range snaps {
		data.Rows = append(data.Rows, row{
			ID:      snap.ID,
			Budget:  snap.BudgetName,
			Created: snap.CreatedAt.Format("2006-01-02 15:04"),
			Status:  string(snap.SyncStatus),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "snapshots.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "snapshots.html")
		_, _ = w.Write([]byte(`<section id="snapshots" class="snapshots"><div class="placeholder">Error rendering snapshots</div></section>`))
	}
}
