package core

import (
	"errors"
	"strings"
)

// NewTransactionID is the sentinel id of a transaction that has not been
// saved to the backend yet.
const NewTransactionID = -1

var (
	ErrEmptyName        = errors.New("empty name")
	ErrNoLineItems      = errors.New("transaction has no line items")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

type (
	// UserConfig carries per-user settings returned by /api/me. Missing
	// fields are normalized to these defaults at the API boundary.
	UserConfig struct {
		TaxRate               float64 `json:"tax_rate"`
		CurrencyDecimalPlaces int     `json:"currency_decimal_places"`
		AdvancedMode          bool    `json:"advanced_mode"`
		Notes                 string  `json:"notes"`
	}

	UserInfo struct {
		UserID   int64      `json:"user_id"`
		Username string     `json:"username"`
		Roles    []string   `json:"roles"`
		Config   UserConfig `json:"config"`
	}

	LineItem struct {
		ID            int64   `json:"id"`
		Name          string  `json:"name"`
		TransactionID int64   `json:"transaction_id"`
		AmountInput   string  `json:"amount_input"`
		Amount        float64 `json:"amount"`
		CategoryID    int64   `json:"category_id"`
		Notes         string  `json:"notes,omitempty"`
	}

	Transaction struct {
		ID        int64      `json:"id"`
		UserID    int64      `json:"user_id"`
		Timestamp float64    `json:"timestamp"`
		VendorID  *int64     `json:"vendor_id,omitempty"`
		ReceiptID *int64     `json:"receipt_id,omitempty"`
		Amount    float64    `json:"amount"`
		LineItems []LineItem `json:"line_items"`
	}

	// Receipt mirrors the backend record. IsUploading is a client-only
	// transient flag set on optimistic placeholders; the embedded
	// Transactions list is maintained manually on transaction save and is
	// allowed to diverge from the global transaction collection.
	Receipt struct {
		ID            int64              `json:"id"`
		UserID        int64              `json:"user_id"`
		CreatedAt     float64            `json:"created_at"`
		ContentType   string             `json:"content_type"`
		ContentLength int64              `json:"content_length"`
		ContentHash   string             `json:"content_hash"`
		Rotation      int                `json:"rotation"`
		OCRMetadata   map[string]float64 `json:"ocr_metadata"`
		IsUploading   bool               `json:"is_uploading"`
		Transactions  []Transaction      `json:"transactions"`
	}

	Vendor struct {
		ID     int64  `json:"id"`
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
	}

	Category struct {
		ID          int64  `json:"id"`
		UserID      int64  `json:"user_id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		WithAutotax bool   `json:"with_autotax"`
	}

	// ReportLineItem is one row of the expenses-by-category report. The
	// Y/M/D fields are already adjusted to the requested timezone by the
	// backend.
	ReportLineItem struct {
		CategoryID int64   `json:"category_id"`
		VendorID   int64   `json:"vendor_id"`
		TxID       int64   `json:"tx_id"`
		Year       int     `json:"year"`
		Month      int     `json:"month"`
		Day        int     `json:"day"`
		DayOfWeek  string  `json:"day_of_week"`
		Amount     float64 `json:"amount"`
	}
)

// IsNew reports whether the transaction still carries the unsaved sentinel.
func (t Transaction) IsNew() bool { return t.ID == NewTransactionID }

func (t Transaction) Validate() error {
	if t.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	if len(t.LineItems) == 0 {
		return ErrNoLineItems
	}
	return nil
}

func (v Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Normalize applies the documented defaults for fields the backend may omit.
func (c UserConfig) Normalize() UserConfig {
	if c.CurrencyDecimalPlaces == 0 {
		c.CurrencyDecimalPlaces = 2
	}
	return c
}
