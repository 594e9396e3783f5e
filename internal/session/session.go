// Package session orchestrates fetching backend state into the store.
// It owns the pagination cursors, the one-time initial load, and the
// readiness signal the UI blocks on.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"scontrino/internal/api"
	"scontrino/internal/core"
	"scontrino/internal/log"
	"scontrino/internal/store"
)

// Status is the tri-state outcome of the initial load.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Page sizes per entity. Receipts and categories load in big chunks,
// transactions and vendors in smaller ones.
const (
	receiptPageSize     = 500
	transactionPageSize = 50
	vendorPageSize      = 50
	categoryPageSize    = 500
)

// cursor tracks progress through one paginated collection. Once
// exhausted, further fetches are no-ops.
type cursor struct {
	offset    int
	limit     int
	exhausted bool
}

// Session drives the client's view of backend state.
type Session struct {
	client *api.Client
	store  *store.Store
	logger *log.Logger

	mu           sync.Mutex
	status       Status
	ready        chan struct{}
	receipts     cursor
	transactions cursor
	vendors      cursor
	categories   cursor
}

func New(client *api.Client, st *store.Store, logger *log.Logger) *Session {
	return &Session{
		client:       client,
		store:        st,
		logger:       logger.WithComponent(log.ComponentSession),
		ready:        make(chan struct{}),
		receipts:     cursor{limit: receiptPageSize},
		transactions: cursor{limit: transactionPageSize},
		vendors:      cursor{limit: vendorPageSize},
		categories:   cursor{limit: categoryPageSize},
	}
}

// Status returns the initial-load state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ready returns a channel closed once the initial load has settled,
// whether it succeeded or failed.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// WaitReady blocks until the initial load settles or ctx is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchPage runs one paginated fetch against cur, feeding results into
// upsert. The cursor advances to the server's next_offset; an empty page
// marks it exhausted. Returns whether the cursor is now exhausted.
func fetchPage[T any](ctx context.Context, s *Session, cur *cursor, path string, upsert func(...T)) (bool, error) {
	s.mu.Lock()
	if cur.exhausted {
		s.mu.Unlock()
		return true, nil
	}
	offset, limit := cur.offset, cur.limit
	s.mu.Unlock()

	page, err := api.FetchPage[T](ctx, s.client, path, offset, limit)
	if err != nil {
		return false, err
	}
	upsert(page.Items...)

	s.mu.Lock()
	cur.offset = page.NextOffset
	cur.exhausted = len(page.Items) == 0
	exhausted := cur.exhausted
	s.mu.Unlock()

	s.logger.Debug("fetched page",
		log.FieldPath, path,
		log.FieldOffset, offset,
		log.FieldItemCount, len(page.Items))
	return exhausted, nil
}

// FetchReceiptsPage loads the next page of receipts.
func (s *Session) FetchReceiptsPage(ctx context.Context) error {
	_, err := fetchPage(ctx, s, &s.receipts, api.PathReceipts, s.store.Receipts.Upsert)
	return err
}

// FetchTransactionsPage loads the next page of transactions.
func (s *Session) FetchTransactionsPage(ctx context.Context) error {
	_, err := fetchPage(ctx, s, &s.transactions, api.PathTransactions, s.store.Transactions.Upsert)
	return err
}

// FetchVendorsPage loads the next page of vendors.
func (s *Session) FetchVendorsPage(ctx context.Context) error {
	_, err := fetchPage(ctx, s, &s.vendors, api.PathVendors, s.store.Vendors.Upsert)
	return err
}

// FetchCategoriesPage loads the next page of categories.
func (s *Session) FetchCategoriesPage(ctx context.Context) error {
	_, err := fetchPage(ctx, s, &s.categories, api.PathCategories, s.store.Categories.Upsert)
	return err
}

// FetchAllVendors pages through vendors until the server reports no more.
func (s *Session) FetchAllVendors(ctx context.Context) error {
	return fetchUntilExhausted(ctx, s, &s.vendors, api.PathVendors, s.store.Vendors.Upsert)
}

// FetchAllCategories pages through categories until exhausted.
func (s *Session) FetchAllCategories(ctx context.Context) error {
	return fetchUntilExhausted(ctx, s, &s.categories, api.PathCategories, s.store.Categories.Upsert)
}

// FetchAllReceipts pages through receipts until exhausted.
func (s *Session) FetchAllReceipts(ctx context.Context) error {
	return fetchUntilExhausted(ctx, s, &s.receipts, api.PathReceipts, s.store.Receipts.Upsert)
}

// FetchAllTransactions pages through transactions until exhausted.
func (s *Session) FetchAllTransactions(ctx context.Context) error {
	return fetchUntilExhausted(ctx, s, &s.transactions, api.PathTransactions, s.store.Transactions.Upsert)
}

func fetchUntilExhausted[T any](ctx context.Context, s *Session, cur *cursor, path string, upsert func(...T)) error {
	for {
		exhausted, err := fetchPage(ctx, s, cur, path, upsert)
		if err != nil {
			return err
		}
		if exhausted {
			return nil
		}
	}
}

// ReceiptsExhausted reports whether every receipt has been fetched.
func (s *Session) ReceiptsExhausted() bool { return s.cursorExhausted(&s.receipts) }

// TransactionsExhausted reports whether every transaction has been fetched.
func (s *Session) TransactionsExhausted() bool { return s.cursorExhausted(&s.transactions) }

func (s *Session) cursorExhausted(cur *cursor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cur.exhausted
}

// InitialLoad fetches the first page of receipts and transactions, the
// complete vendor and category collections, and the user info, all
// concurrently. Vendors and categories load whole because dropdowns and
// name joins need every entry; receipts and transactions keep paging on
// demand. Every fetch runs to completion regardless of the others; the
// session settles to succeeded only when all five succeed. The ready
// channel closes either way.
func (s *Session) InitialLoad(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.FetchReceiptsPage(ctx) })
	g.Go(func() error { return s.FetchTransactionsPage(ctx) })
	g.Go(func() error { return s.FetchAllVendors(ctx) })
	g.Go(func() error { return s.FetchAllCategories(ctx) })
	g.Go(func() error {
		u, err := s.client.Me(ctx)
		if err != nil {
			return err
		}
		s.store.SetUser(u)
		return nil
	})

	err := g.Wait()

	s.mu.Lock()
	if s.status == StatusPending {
		if err != nil {
			s.status = StatusFailed
		} else {
			s.status = StatusSucceeded
		}
		close(s.ready)
	}
	status := s.status
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("initial load settled",
			"status", status.String(),
			log.FieldError, err.Error())
		return err
	}
	s.logger.Info("initial load settled",
		"status", status.String(),
		"receipts", s.store.Receipts.Len(),
		"transactions", s.store.Transactions.Len(),
		"vendors", s.store.Vendors.Len(),
		"categories", s.store.Categories.Len())
	return nil
}

// Store exposes the underlying entity store.
func (s *Session) Store() *store.Store {
	return s.store
}

// Client exposes the API client for callers that need raw access.
func (s *Session) Client() *api.Client {
	return s.client
}

// UserConfig returns the signed-in user's config, falling back to
// normalized defaults before the initial load lands.
func (s *Session) UserConfig() core.UserConfig {
	if u, ok := s.store.User(); ok {
		return u.Config
	}
	return core.UserConfig{}.Normalize()
}
