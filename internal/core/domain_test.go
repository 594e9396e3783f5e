package core

import "testing"

func TestTransactionIsNew(t *testing.T) {
	tx := Transaction{ID: NewTransactionID}
	if !tx.IsNew() {
		t.Error("transaction with sentinel id should be new")
	}
	tx.ID = 42
	if tx.IsNew() {
		t.Error("transaction with server id should not be new")
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		ID:        NewTransactionID,
		Timestamp: 1700000000,
		LineItems: []LineItem{{AmountInput: "10", Amount: 10}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	noItems := valid
	noItems.LineItems = nil
	if err := noItems.Validate(); err != ErrNoLineItems {
		t.Errorf("expected ErrNoLineItems, got %v", err)
	}

	noTime := valid
	noTime.Timestamp = 0
	if err := noTime.Validate(); err != ErrInvalidTimestamp {
		t.Errorf("expected ErrInvalidTimestamp, got %v", err)
	}
}

func TestVendorAndCategoryValidate(t *testing.T) {
	if err := (Vendor{Name: "  "}).Validate(); err != ErrEmptyName {
		t.Errorf("blank vendor name should be rejected, got %v", err)
	}
	if err := (Vendor{Name: "Esselunga"}).Validate(); err != nil {
		t.Errorf("vendor name rejected: %v", err)
	}
	if err := (Category{Name: ""}).Validate(); err != ErrEmptyName {
		t.Errorf("blank category name should be rejected, got %v", err)
	}
}

func TestUserConfigNormalize(t *testing.T) {
	cfg := UserConfig{}.Normalize()
	if cfg.CurrencyDecimalPlaces != 2 {
		t.Errorf("default decimal places = %d, want 2", cfg.CurrencyDecimalPlaces)
	}
	if cfg.TaxRate != 0 || cfg.AdvancedMode || cfg.Notes != "" {
		t.Error("zero values should pass through unchanged")
	}

	cfg = UserConfig{CurrencyDecimalPlaces: 3, TaxRate: 0.22}.Normalize()
	if cfg.CurrencyDecimalPlaces != 3 {
		t.Errorf("explicit decimal places overridden: %d", cfg.CurrencyDecimalPlaces)
	}
}
