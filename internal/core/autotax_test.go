package core

import "testing"

func TestGuessTaxCategory(t *testing.T) {
	cats := []Category{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "VAT"},
		{ID: 3, Name: "Sales Tax"},
	}
	got, ok := GuessTaxCategory(cats)
	if !ok {
		t.Fatal("expected a guess")
	}
	// Both VAT and Sales Tax match the pattern; the shorter name wins.
	if got.ID != 2 {
		t.Errorf("guessed category %d (%s), want 2 (VAT)", got.ID, got.Name)
	}

	if _, ok := GuessTaxCategory(nil); ok {
		t.Error("no categories should yield no guess")
	}
}

func TestApplyAutoTaxSplitsSingleLine(t *testing.T) {
	cats := []Category{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "GST"},
	}
	tx := Transaction{
		ID:        NewTransactionID,
		Timestamp: 1700000000,
		LineItems: []LineItem{{AmountInput: "11", Amount: 11}},
	}

	ApplyAutoTax(&tx, cats, UserConfig{TaxRate: 0.1}.Normalize())

	if len(tx.LineItems) != 2 {
		t.Fatalf("expected 2 line items after split, got %d", len(tx.LineItems))
	}
	if tx.LineItems[0].Amount != 10 {
		t.Errorf("net amount = %v, want 10", tx.LineItems[0].Amount)
	}
	tax := tx.LineItems[1]
	if tax.Name != "Tax" {
		t.Errorf("tax line name = %q", tax.Name)
	}
	if tax.CategoryID != 2 {
		t.Errorf("tax category = %d, want 2", tax.CategoryID)
	}
	if tax.Amount != 1 {
		t.Errorf("tax amount = %v, want 1", tax.Amount)
	}
}

func TestApplyAutoTaxNoops(t *testing.T) {
	cats := []Category{{ID: 1, Name: "Groceries"}, {ID: 2, Name: "Tax"}}

	multi := Transaction{LineItems: []LineItem{{Amount: 5}, {Amount: 6}}}
	ApplyAutoTax(&multi, cats, UserConfig{TaxRate: 0.1})
	if len(multi.LineItems) != 2 {
		t.Error("multi-line transactions must not be split")
	}

	noRate := Transaction{LineItems: []LineItem{{Amount: 5}}}
	ApplyAutoTax(&noRate, cats, UserConfig{})
	if len(noRate.LineItems) != 1 {
		t.Error("zero tax rate must not split")
	}

	oneCat := Transaction{LineItems: []LineItem{{Amount: 5}}}
	ApplyAutoTax(&oneCat, cats[:1], UserConfig{TaxRate: 0.1})
	if len(oneCat.LineItems) != 1 {
		t.Error("a single category must not split")
	}
}
