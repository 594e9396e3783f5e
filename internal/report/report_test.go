package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"scontrino/internal/api"
	"scontrino/internal/core"
	"scontrino/internal/store"
)

func reportBackend(t *testing.T, items []core.ReportLineItem) (*api.Client, *int) {
	t.Helper()
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query()
		if q.Get("start") == "" || q.Get("end") == "" || q.Get("tz") == "" {
			t.Errorf("missing report query params: %v", q)
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		if offset > len(items) {
			offset = len(items)
		}
		// The backend picks its own page size for reports.
		end := offset + 2
		if end > len(items) {
			end = len(items)
		}
		page := items[offset:end]
		json.NewEncoder(w).Encode(map[string]any{
			"items":       page,
			"next_offset": offset + len(page),
		})
	}))
	t.Cleanup(srv.Close)
	cfg := api.DefaultConfig()
	cfg.BaseURL = srv.URL
	return api.NewClient(cfg), &requests
}

func sampleItems() []core.ReportLineItem {
	return []core.ReportLineItem{
		{CategoryID: 1, VendorID: 10, Year: 2026, Month: 1, Day: 5, DayOfWeek: "Mon", Amount: 10},
		{CategoryID: 1, VendorID: 10, Year: 2026, Month: 1, Day: 6, DayOfWeek: "Tue", Amount: 2.5},
		{CategoryID: 2, VendorID: 11, Year: 2026, Month: 2, Day: 1, DayOfWeek: "Sun", Amount: 7},
		{CategoryID: 99, VendorID: 0, Year: 2026, Month: 2, Day: 2, DayOfWeek: "Mon", Amount: 1},
	}
}

func TestFetchAllPagesUntilEmpty(t *testing.T) {
	client, requests := reportBackend(t, sampleItems())

	items, err := FetchAll(context.Background(), client, 1000, 2000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Errorf("items = %d, want 4", len(items))
	}
	// Two full pages of two, then the empty page that ends the loop.
	if *requests != 3 {
		t.Errorf("requests = %d, want 3", *requests)
	}
}

func joinStore() *store.Store {
	st := store.New()
	st.Categories.Upsert(
		core.Category{ID: 1, Name: "Groceries"},
		core.Category{ID: 2, Name: "Transport"},
	)
	st.Vendors.Upsert(
		core.Vendor{ID: 10, Name: "Esselunga"},
		core.Vendor{ID: 11, Name: "ATM"},
	)
	return st
}

func TestJoinResolvesNamesWithDefaultFallback(t *testing.T) {
	rows := Join(sampleItems(), joinStore())

	if rows[0].CategoryName != "Groceries" || rows[0].VendorName != "Esselunga" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[3].CategoryName != DefaultCategoryName {
		t.Errorf("unknown category = %q, want %q", rows[3].CategoryName, DefaultCategoryName)
	}
	if rows[3].VendorName != "" {
		t.Errorf("unknown vendor = %q, want empty", rows[3].VendorName)
	}
}

func TestPivotByCategoryMonth(t *testing.T) {
	rows := Join(sampleItems(), joinStore())
	p := PivotByCategoryMonth(rows)

	jan := MonthKey{Year: 2026, Month: 1}
	feb := MonthKey{Year: 2026, Month: 2}
	if len(p.Months) != 2 || p.Months[0] != jan || p.Months[1] != feb {
		t.Fatalf("months = %v", p.Months)
	}
	if got := p.Totals["Groceries"][jan]; got != 12.5 {
		t.Errorf("Groceries Jan = %v, want 12.5", got)
	}
	if got := p.Totals["Transport"][feb]; got != 7 {
		t.Errorf("Transport Feb = %v, want 7", got)
	}
	if got := p.MonthTotal(feb); got != 8 {
		t.Errorf("Feb total = %v, want 8", got)
	}
	// Categories come out sorted.
	want := []string{DefaultCategoryName, "Groceries", "Transport"}
	for i, name := range want {
		if p.Categories[i] != name {
			t.Errorf("categories = %v, want %v", p.Categories, want)
			break
		}
	}
}

func TestWriteCSV(t *testing.T) {
	rows := Join(sampleItems()[:1], joinStore())

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv = %q", buf.String())
	}
	if lines[0] != "year,month,day,day_of_week,category,vendor,amount" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "2026,1,5,Mon,Groceries,Esselunga,10.00" {
		t.Errorf("row = %q", lines[1])
	}
}
