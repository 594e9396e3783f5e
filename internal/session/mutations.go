package session

import (
	"context"

	"scontrino/internal/core"
	"scontrino/internal/log"
)

// SaveTransaction creates or updates a transaction depending on the id
// sentinel, then upserts the result to the front of the collection so it
// shows first in recency-ordered views. When the transaction belongs to a
// receipt, the receipt's embedded list gets the saved record appended if
// it is not already there; entries already present are left as-is, so the
// embedded copy may lag behind edits.
func (s *Session) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var (
		saved core.Transaction
		err   error
	)
	if t.IsNew() {
		saved, err = s.client.CreateTransaction(ctx, t)
	} else {
		saved, err = s.client.UpdateTransaction(ctx, t)
	}
	if err != nil {
		return core.Transaction{}, err
	}

	s.store.Transactions.UpsertFront(saved)

	if saved.ReceiptID != nil {
		if r, ok := s.store.Receipts.Find(*saved.ReceiptID); ok {
			present := false
			for _, embedded := range r.Transactions {
				if embedded.ID == saved.ID {
					present = true
					break
				}
			}
			if !present {
				r.Transactions = append(r.Transactions, saved)
				s.store.Receipts.Upsert(r)
			}
		}
	}

	s.logger.Info("saved transaction",
		log.FieldEntity, "transaction",
		log.FieldEntityID, saved.ID,
		"created", t.IsNew())
	return saved, nil
}

// DeleteTransaction removes the transaction on the backend and locally.
func (s *Session) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.client.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.store.Transactions.Remove(id)
	s.logger.Info("deleted transaction", log.FieldEntityID, id)
	return nil
}

// DeleteReceipt removes the receipt on the backend and locally.
func (s *Session) DeleteReceipt(ctx context.Context, id int64) error {
	if err := s.client.DeleteReceipt(ctx, id); err != nil {
		return err
	}
	s.store.Receipts.Remove(id)
	s.logger.Info("deleted receipt", log.FieldEntityID, id)
	return nil
}

// CreateVendor saves a new vendor and adds it to the collection.
func (s *Session) CreateVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	if err := v.Validate(); err != nil {
		return core.Vendor{}, err
	}
	saved, err := s.client.CreateVendor(ctx, v)
	if err != nil {
		return core.Vendor{}, err
	}
	s.store.Vendors.Upsert(saved)
	return saved, nil
}

// UpdateVendor saves an edited vendor, typically a rename, and
// refreshes the collection entry in place.
func (s *Session) UpdateVendor(ctx context.Context, v core.Vendor) (core.Vendor, error) {
	if err := v.Validate(); err != nil {
		return core.Vendor{}, err
	}
	saved, err := s.client.UpdateVendor(ctx, v)
	if err != nil {
		return core.Vendor{}, err
	}
	s.store.Vendors.Upsert(saved)
	return saved, nil
}

// CreateCategory saves a new category and adds it to the collection.
func (s *Session) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.client.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.store.Categories.Upsert(saved)
	return saved, nil
}

// UpdateCategory saves an edited category.
func (s *Session) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	saved, err := s.client.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.store.Categories.Upsert(saved)
	return saved, nil
}

// MergeVendors folds sourceID into targetID on the backend, then updates
// the local view: transactions pointing at the source vendor are remapped
// to the target, and the source vendor disappears from the collection.
// Embedded receipt transactions keep their old vendor id.
func (s *Session) MergeVendors(ctx context.Context, sourceID, targetID int64) error {
	if err := s.client.MergeVendors(ctx, sourceID, targetID); err != nil {
		return err
	}

	var remapped []core.Transaction
	for _, t := range s.store.Transactions.Items() {
		if t.VendorID != nil && *t.VendorID == sourceID {
			target := targetID
			t.VendorID = &target
			remapped = append(remapped, t)
		}
	}
	if len(remapped) > 0 {
		s.store.Transactions.Upsert(remapped...)
	}
	s.store.Vendors.Remove(sourceID)

	s.logger.Info("merged vendors",
		"source_id", sourceID,
		"target_id", targetID,
		"remapped", len(remapped))
	return nil
}
