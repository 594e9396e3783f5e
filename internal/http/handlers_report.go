package http

import (
	"net/http"
	"time"

	"scontrino/internal/log"
	"scontrino/internal/report"
)

// handleReport renders the expenses-by-category pivot for a date range.
// Defaults to the last six months.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.renderLoading(w) {
		return
	}

	now := time.Now()
	start := now.AddDate(0, -6, 0)
	end := now
	if v := r.URL.Query().Get("start"); v != "" {
		if d, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			start = d
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if d, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			end = d
		}
	}

	_, offsetSec := now.Zone()
	items, err := report.FetchAll(r.Context(), s.session.Client(), start.Unix(), end.Unix(), offsetSec/3600)
	if err != nil {
		s.logger.Error("report fetch failed", log.FieldError, err.Error())
		s.notices.Notify("Loading the report failed.")
	}

	rows := report.Join(items, s.store)
	pivot := report.PivotByCategoryMonth(rows)

	type monthColumn struct {
		Label string
		Total float64
	}
	type categoryRow struct {
		Name    string
		Amounts []float64
	}

	months := make([]monthColumn, len(pivot.Months))
	for i, m := range pivot.Months {
		months[i] = monthColumn{Label: m.String(), Total: pivot.MonthTotal(m)}
	}
	categories := make([]categoryRow, len(pivot.Categories))
	for i, name := range pivot.Categories {
		row := categoryRow{Name: name, Amounts: make([]float64, len(pivot.Months))}
		for j, m := range pivot.Months {
			row.Amounts[j] = pivot.Totals[name][m]
		}
		categories[i] = row
	}

	data := struct {
		pageData
		Start      string
		End        string
		Months     []monthColumn
		Categories []categoryRow
		RowCount   int
	}{
		pageData:   s.basePage(),
		Start:      start.Format("2006-01-02"),
		End:        end.Format("2006-01-02"),
		Months:     months,
		Categories: categories,
		RowCount:   len(rows),
	}
	s.render(w, r, "report.html", data)
}
