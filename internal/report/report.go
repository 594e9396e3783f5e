// Package report pulls the expenses-by-category report from the backend
// and shapes it for viewing and export.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"scontrino/internal/api"
	"scontrino/internal/core"
	"scontrino/internal/store"
)

// DefaultCategoryName labels rows whose category is unknown locally.
const DefaultCategoryName = "Default"

// Row is one report line joined with the locally known names.
type Row struct {
	core.ReportLineItem
	CategoryName string
	VendorName   string
}

// FetchAll pages through the report until the backend returns an empty
// page. Unlike the entity collections there is no cursor to keep; a
// report is always fetched whole.
func FetchAll(ctx context.Context, client *api.Client, start, end int64, tz int) ([]core.ReportLineItem, error) {
	var items []core.ReportLineItem
	offset := 0
	for {
		page, err := client.ReportPage(ctx, start, end, offset, tz)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		offset = page.NextOffset
		if len(page.Items) == 0 {
			return items, nil
		}
	}
}

// Join resolves category and vendor ids against the store. Categories
// missing locally fall back to the default label; vendors stay empty.
func Join(items []core.ReportLineItem, st *store.Store) []Row {
	rows := make([]Row, len(items))
	for i, item := range items {
		name := st.CategoryName(item.CategoryID)
		if name == "" {
			name = DefaultCategoryName
		}
		rows[i] = Row{
			ReportLineItem: item,
			CategoryName:   name,
			VendorName:     st.VendorName(item.VendorID),
		}
	}
	return rows
}

// MonthKey identifies one calendar month of the report.
type MonthKey struct {
	Year  int
	Month int
}

func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Pivot is the category-by-month sum table backing the report view.
type Pivot struct {
	// Months in chronological order.
	Months []MonthKey
	// Categories sorted by name.
	Categories []string
	// Totals[category][month] holds the summed amount.
	Totals map[string]map[MonthKey]float64
}

// PivotByCategoryMonth sums rows into a category-by-month table.
func PivotByCategoryMonth(rows []Row) Pivot {
	p := Pivot{Totals: make(map[string]map[MonthKey]float64)}
	monthSeen := make(map[MonthKey]bool)

	for _, row := range rows {
		m := MonthKey{Year: row.Year, Month: row.Month}
		if !monthSeen[m] {
			monthSeen[m] = true
			p.Months = append(p.Months, m)
		}
		byMonth, ok := p.Totals[row.CategoryName]
		if !ok {
			byMonth = make(map[MonthKey]float64)
			p.Totals[row.CategoryName] = byMonth
			p.Categories = append(p.Categories, row.CategoryName)
		}
		byMonth[m] += row.Amount
	}

	sort.Slice(p.Months, func(i, j int) bool {
		if p.Months[i].Year != p.Months[j].Year {
			return p.Months[i].Year < p.Months[j].Year
		}
		return p.Months[i].Month < p.Months[j].Month
	})
	sort.Strings(p.Categories)
	return p
}

// MonthTotal sums every category for one month.
func (p Pivot) MonthTotal(m MonthKey) float64 {
	var total float64
	for _, byMonth := range p.Totals {
		total += byMonth[m]
	}
	return total
}

// WriteCSV emits the joined rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"year", "month", "day", "day_of_week", "category", "vendor", "amount"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			fmt.Sprint(row.Year),
			fmt.Sprint(row.Month),
			fmt.Sprint(row.Day),
			row.DayOfWeek,
			row.CategoryName,
			row.VendorName,
			fmt.Sprintf("%.2f", row.Amount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
