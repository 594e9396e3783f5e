package store

import (
	"sync"

	"scontrino/internal/core"
)

// Store bundles the four entity collections plus the signed-in user's
// info. It is created once at startup and lives for the whole process.
type Store struct {
	Receipts     *Collection[core.Receipt]
	Transactions *Collection[core.Transaction]
	Vendors      *Collection[core.Vendor]
	Categories   *Collection[core.Category]

	mu      sync.Mutex
	user    core.UserInfo
	hasUser bool
}

func New() *Store {
	return &Store{
		Receipts:     NewCollection(func(r core.Receipt) int64 { return r.ID }),
		Transactions: NewCollection(func(t core.Transaction) int64 { return t.ID }),
		Vendors:      NewCollection(func(v core.Vendor) int64 { return v.ID }),
		Categories:   NewCollection(func(c core.Category) int64 { return c.ID }),
	}
}

// SetUser records the user info fetched from /api/me.
func (s *Store) SetUser(u core.UserInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
	s.hasUser = true
}

// User returns the stored user info and whether it has been set.
func (s *Store) User() (core.UserInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.hasUser
}

// CategoryName resolves a category id to its name, or "" when unknown.
func (s *Store) CategoryName(id int64) string {
	if c, ok := s.Categories.Find(id); ok {
		return c.Name
	}
	return ""
}

// VendorName resolves a vendor id to its name, or "" when unknown.
func (s *Store) VendorName(id int64) string {
	if v, ok := s.Vendors.Find(id); ok {
		return v.Name
	}
	return ""
}
