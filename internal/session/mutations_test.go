package session

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"scontrino/internal/core"
)

func i64(v int64) *int64 { return &v }

func saveBackend(t *testing.T) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		var tx core.Transaction
		json.NewDecoder(r.Body).Decode(&tx)
		tx.ID = 42
		json.NewEncoder(w).Encode(tx)
	})
	mux.HandleFunc("PUT /api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		var tx core.Transaction
		json.NewDecoder(r.Body).Decode(&tx)
		json.NewEncoder(w).Encode(tx)
	})
	mux.HandleFunc("POST /api/vendors/merge", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/vendors", func(w http.ResponseWriter, r *http.Request) {
		var v core.Vendor
		json.NewDecoder(r.Body).Decode(&v)
		v.ID = 31
		json.NewEncoder(w).Encode(v)
	})
	mux.HandleFunc("POST /api/categories", func(w http.ResponseWriter, r *http.Request) {
		var c core.Category
		json.NewDecoder(r.Body).Decode(&c)
		c.ID = 41
		json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("PUT /api/vendors/{id}", func(w http.ResponseWriter, r *http.Request) {
		var v core.Vendor
		json.NewDecoder(r.Body).Decode(&v)
		json.NewEncoder(w).Encode(v)
	})
	mux.HandleFunc("DELETE /api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/receipts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTx(receiptID *int64) core.Transaction {
	return core.Transaction{
		ID:        core.NewTransactionID,
		Timestamp: 1700000000,
		ReceiptID: receiptID,
		LineItems: []core.LineItem{{Name: "Milk", Amount: 2.5}},
	}
}

func TestSaveTransactionCreatesAndPrepends(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Transactions.Upsert(core.Transaction{ID: 1, Timestamp: 1})

	saved, err := s.SaveTransaction(context.Background(), newTx(nil))
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != 42 {
		t.Errorf("saved id = %d", saved.ID)
	}

	items := st.Transactions.Items()
	if len(items) != 2 || items[0].ID != 42 {
		t.Errorf("new transaction not at front: %+v", items)
	}
}

func TestSaveTransactionUpdatesExisting(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Transactions.Upsert(core.Transaction{ID: 42, Timestamp: 1, Amount: 1})

	tx := newTx(nil)
	tx.ID = 42
	tx.Amount = 9.5
	if _, err := s.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatal(err)
	}

	got, _ := st.Transactions.Find(42)
	if got.Amount != 9.5 {
		t.Errorf("amount = %v", got.Amount)
	}
	if st.Transactions.Len() != 1 {
		t.Errorf("update duplicated the transaction")
	}
}

func TestSaveTransactionAppendsToReceiptOnlyWhenAbsent(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Receipts.Upsert(core.Receipt{ID: 7})

	saved, err := s.SaveTransaction(context.Background(), newTx(i64(7)))
	if err != nil {
		t.Fatal(err)
	}

	r, _ := st.Receipts.Find(7)
	if len(r.Transactions) != 1 || r.Transactions[0].ID != saved.ID {
		t.Fatalf("embedded list = %+v", r.Transactions)
	}

	// Editing the same transaction must not touch the embedded copy.
	saved.Amount = 99
	if _, err := s.SaveTransaction(context.Background(), saved); err != nil {
		t.Fatal(err)
	}
	r, _ = st.Receipts.Find(7)
	if len(r.Transactions) != 1 {
		t.Errorf("embedded list duplicated: %+v", r.Transactions)
	}
	if r.Transactions[0].Amount == 99 {
		t.Error("embedded copy should lag behind edits")
	}
}

func TestSaveTransactionValidates(t *testing.T) {
	s, _ := newTestSession(t, saveBackend(t))
	_, err := s.SaveTransaction(context.Background(), core.Transaction{ID: core.NewTransactionID, Timestamp: 1})
	if err != core.ErrNoLineItems {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteTransactionRemovesLocally(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Transactions.Upsert(core.Transaction{ID: 5, Timestamp: 1})

	if err := s.DeleteTransaction(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if st.Transactions.Len() != 0 {
		t.Error("transaction still present")
	}
}

func TestDeleteReceiptRemovesLocally(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Receipts.Upsert(core.Receipt{ID: 8})

	if err := s.DeleteReceipt(context.Background(), 8); err != nil {
		t.Fatal(err)
	}
	if st.Receipts.Len() != 0 {
		t.Error("receipt still present")
	}
}

func TestUpdateVendorRenames(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Vendors.Upsert(core.Vendor{ID: 9, Name: "Esselunga spa"})

	saved, err := s.UpdateVendor(context.Background(), core.Vendor{ID: 9, Name: "Esselunga"})
	if err != nil {
		t.Fatal(err)
	}
	if saved.Name != "Esselunga" {
		t.Errorf("saved name = %q", saved.Name)
	}

	v, _ := st.Vendors.Find(9)
	if v.Name != "Esselunga" {
		t.Errorf("stored name = %q", v.Name)
	}
	if st.Vendors.Len() != 1 {
		t.Error("rename duplicated the vendor")
	}

	if _, err := s.UpdateVendor(context.Background(), core.Vendor{ID: 9, Name: " "}); err != core.ErrEmptyName {
		t.Errorf("blank rename err = %v", err)
	}
}

func TestCreateVendorAndCategory(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))

	v, err := s.CreateVendor(context.Background(), core.Vendor{Name: "Esselunga"})
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != 31 {
		t.Errorf("vendor id = %d", v.ID)
	}
	if _, ok := st.Vendors.Find(31); !ok {
		t.Error("vendor not stored")
	}

	if _, err := s.CreateVendor(context.Background(), core.Vendor{Name: "  "}); err != core.ErrEmptyName {
		t.Errorf("blank vendor err = %v", err)
	}

	c, err := s.CreateCategory(context.Background(), core.Category{Name: "VAT", WithAutotax: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := st.Categories.Find(c.ID); !ok || !got.WithAutotax {
		t.Errorf("category = %+v, %v", got, ok)
	}
}

func TestMergeVendorsRemapsAndRemovesSource(t *testing.T) {
	s, st := newTestSession(t, saveBackend(t))
	st.Vendors.Upsert(core.Vendor{ID: 3, Name: "Esselunga spa"}, core.Vendor{ID: 9, Name: "Esselunga"})
	st.Transactions.Upsert(
		core.Transaction{ID: 1, Timestamp: 1, VendorID: i64(3)},
		core.Transaction{ID: 2, Timestamp: 1, VendorID: i64(9)},
		core.Transaction{ID: 3, Timestamp: 1},
	)

	if err := s.MergeVendors(context.Background(), 3, 9); err != nil {
		t.Fatal(err)
	}

	if _, ok := st.Vendors.Find(3); ok {
		t.Error("source vendor still present")
	}
	for _, tx := range st.Transactions.Items() {
		if tx.VendorID != nil && *tx.VendorID == 3 {
			t.Errorf("transaction %d still points at source vendor", tx.ID)
		}
	}
	got, _ := st.Transactions.Find(1)
	if got.VendorID == nil || *got.VendorID != 9 {
		t.Errorf("transaction 1 vendor = %v, want 9", got.VendorID)
	}
}
