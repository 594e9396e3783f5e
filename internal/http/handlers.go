package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scontrino/internal/core"
	"scontrino/internal/log"
	"scontrino/internal/session"
	"scontrino/internal/upload"
)

const maxUploadBytes = 64 << 20

type pageData struct {
	Username string
	Decimals int
	Notices  []string
}

func (s *Server) basePage() pageData {
	p := pageData{
		Decimals: s.session.UserConfig().CurrencyDecimalPlaces,
		Notices:  s.notices.drain(),
	}
	if u, ok := s.store.User(); ok {
		p.Username = u.Username
	}
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.renderLoading(w) {
		return
	}

	type receiptView struct {
		core.Receipt
		TransactionCount int
	}
	receipts := s.store.Receipts.Items()
	views := make([]receiptView, len(receipts))
	for i, rec := range receipts {
		views[i] = receiptView{Receipt: rec, TransactionCount: len(rec.Transactions)}
	}

	data := struct {
		pageData
		Receipts   []receiptView
		LoadFailed bool
		HasMore    bool
	}{
		pageData:   s.basePage(),
		Receipts:   views,
		LoadFailed: s.session.Status() == session.StatusFailed,
		HasMore:    !s.session.ReceiptsExhausted(),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if s.renderLoading(w) {
		return
	}

	type txView struct {
		core.Transaction
		VendorName string
		When       string
	}
	txs := s.store.Transactions.Items()
	views := make([]txView, len(txs))
	for i, tx := range txs {
		v := txView{Transaction: tx, When: formatTimestamp(tx.Timestamp)}
		if tx.VendorID != nil {
			v.VendorName = s.store.VendorName(*tx.VendorID)
		}
		views[i] = v
	}

	data := struct {
		pageData
		Transactions []txView
		Vendors      []core.Vendor
		Categories   []core.Category
		HasMore      bool
	}{
		pageData:     s.basePage(),
		Transactions: views,
		Vendors:      s.store.Vendors.Items(),
		Categories:   s.store.Categories.Items(),
		HasMore:      !s.session.TransactionsExhausted(),
	}
	s.render(w, r, "transactions.html", data)
}

// handleUpload accepts a multipart form of receipt files. With the
// "sequential" flag set, files go up one at a time so big batches do not
// race each other.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload form", http.StatusBadRequest)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	files := make([]upload.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.logger.Error("open uploaded file",
				log.FieldFilename, h.Filename,
				log.FieldError, err.Error())
			continue
		}
		defer f.Close()
		files = append(files, upload.File{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	// The uploader surfaces its own notices, per file for duplicates and
	// once per batch for anything else.
	var err error
	if r.FormValue("sequential") != "" {
		err = s.uploader.UploadSequential(r.Context(), files, func(done, total int, filename string) {
			s.logger.Info("upload progress",
				log.FieldFilename, filename,
				"done", done,
				"total", total)
		})
	} else {
		err = s.uploader.Upload(r.Context(), files)
	}
	if err != nil {
		s.logger.Error("upload batch finished with failures", log.FieldError, err.Error())
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleMoreReceipts pulls the next receipt page for the load-more
// affordance. On error the button stays put, so retrying is one click.
func (s *Server) handleMoreReceipts(w http.ResponseWriter, r *http.Request) {
	if err := s.session.FetchReceiptsPage(r.Context()); err != nil {
		s.logger.Error("fetch more receipts failed", log.FieldError, err.Error())
		s.notices.Notify("Loading more receipts failed.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleMoreTransactions pulls the next transaction page.
func (s *Server) handleMoreTransactions(w http.ResponseWriter, r *http.Request) {
	if err := s.session.FetchTransactionsPage(r.Context()); err != nil {
		s.logger.Error("fetch more transactions failed", log.FieldError, err.Error())
		s.notices.Notify("Loading more transactions failed.")
	}
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

// handleSaveTransaction builds a transaction from the form, evaluating
// the amount expression and optionally applying the auto-tax split, and
// saves it through the session.
func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	cfg := s.session.UserConfig()

	id := int64(core.NewTransactionID)
	if v := strings.TrimSpace(r.Form.Get("id")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid transaction id", http.StatusUnprocessableEntity)
			return
		}
		id = parsed
	}

	timestamp := float64(time.Now().Unix())
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			http.Error(w, "invalid date", http.StatusUnprocessableEntity)
			return
		}
		timestamp = float64(day.Unix())
	}

	amountInput := strings.TrimSpace(r.Form.Get("amount_input"))
	amount, err := core.EvaluateAmountInput(amountInput, cfg.CurrencyDecimalPlaces)
	if err != nil {
		s.notices.Notify("Invalid amount: " + amountInput)
		http.Redirect(w, r, "/transactions", http.StatusSeeOther)
		return
	}

	tx := core.Transaction{
		ID:        id,
		Timestamp: timestamp,
		LineItems: []core.LineItem{{
			ID:          time.Now().UnixMilli(),
			Name:        strings.TrimSpace(r.Form.Get("name")),
			AmountInput: amountInput,
			Amount:      amount,
		}},
	}
	if v := parseOptionalID(r.Form.Get("vendor_id")); v != nil {
		tx.VendorID = v
	}
	if v := parseOptionalID(r.Form.Get("receipt_id")); v != nil {
		tx.ReceiptID = v
	}
	if v := parseOptionalID(r.Form.Get("category_id")); v != nil {
		tx.LineItems[0].CategoryID = *v
	}

	if tx.IsNew() && r.Form.Get("autotax") != "" {
		autotax := make([]core.Category, 0)
		for _, c := range s.store.Categories.Items() {
			if c.WithAutotax {
				autotax = append(autotax, c)
			}
		}
		core.ApplyAutoTax(&tx, autotax, cfg)
	}
	tx.Amount = 0
	for _, li := range tx.LineItems {
		tx.Amount += li.Amount
	}

	if _, err := s.session.SaveTransaction(r.Context(), tx); err != nil {
		if errors.Is(err, core.ErrNoLineItems) || errors.Is(err, core.ErrInvalidTimestamp) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("save transaction failed", log.FieldError, err.Error())
		s.notices.Notify("Saving the transaction failed.")
	}
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.Form.Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusUnprocessableEntity)
		return
	}
	if err := s.session.DeleteTransaction(r.Context(), id); err != nil {
		s.logger.Error("delete transaction failed", log.FieldError, err.Error())
		s.notices.Notify("Deleting the transaction failed.")
	}
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

// handleDeleteReceipt removes the receipt on the backend and locally,
// then drops its cached images.
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.Form.Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid receipt id", http.StatusUnprocessableEntity)
		return
	}
	if err := s.session.DeleteReceipt(r.Context(), id); err != nil {
		s.logger.Error("delete receipt failed", log.FieldError, err.Error())
		s.notices.Notify("Deleting the receipt failed.")
	} else {
		s.images.Invalidate(id)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRenameVendor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.Form.Get("vendor_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid vendor id", http.StatusUnprocessableEntity)
		return
	}
	v, ok := s.store.Vendors.Find(id)
	if !ok {
		http.Error(w, "unknown vendor", http.StatusUnprocessableEntity)
		return
	}
	v.Name = strings.TrimSpace(r.Form.Get("name"))
	if _, err := s.session.UpdateVendor(r.Context(), v); err != nil {
		if errors.Is(err, core.ErrEmptyName) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("rename vendor failed", log.FieldError, err.Error())
		s.notices.Notify("Renaming the vendor failed.")
	}
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (s *Server) handleMergeVendors(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sourceID, err1 := strconv.ParseInt(r.Form.Get("source_id"), 10, 64)
	targetID, err2 := strconv.ParseInt(r.Form.Get("target_id"), 10, 64)
	if err1 != nil || err2 != nil || sourceID == targetID {
		http.Error(w, "invalid vendor ids", http.StatusUnprocessableEntity)
		return
	}
	if err := s.session.MergeVendors(r.Context(), sourceID, targetID); err != nil {
		s.logger.Error("merge vendors failed", log.FieldError, err.Error())
		s.notices.Notify("Merging the vendors failed.")
	}
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

// handleReceiptImage proxies the backend image through the local cache.
func (s *Server) handleReceiptImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid receipt id", http.StatusBadRequest)
		return
	}
	thumb := r.URL.Query().Get("thumb") != ""

	data, contentType, err := s.images.Get(r.Context(), id, thumb)
	if err != nil {
		s.logger.Error("fetch receipt image",
			log.FieldEntityID, id,
			log.FieldError, err.Error())
		http.Error(w, "image unavailable", http.StatusBadGateway)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func parseOptionalID(v string) *int64 {
	v = strings.TrimSpace(v)
	if v == "" || v == "0" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
