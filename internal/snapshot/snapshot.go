// Package snapshot persists the entity store to a local SQLite database
// so a restart can show the last-known state before the backend answers.
// The snapshot is a cache, never a source of truth: it is overwritten
// wholesale on save and any load error just means starting empty.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"scontrino/internal/core"
	"scontrino/internal/store"

	_ "modernc.org/sqlite"
)

// Entity kinds as stored in snapshot_entities.kind.
const (
	kindReceipt     = "receipt"
	kindTransaction = "transaction"
	kindVendor      = "vendor"
	kindCategory    = "category"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the whole snapshot with the store's current contents.
// Upload placeholders are skipped; they are meaningless across restarts.
func (s *Store) Save(ctx context.Context, st *store.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_entities"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	receipts := st.Receipts.Items()
	settled := receipts[:0]
	for _, r := range receipts {
		if !r.IsUploading {
			settled = append(settled, r)
		}
	}
	if err := saveKind(ctx, tx, kindReceipt, settled, func(r core.Receipt) int64 { return r.ID }); err != nil {
		return err
	}
	if err := saveKind(ctx, tx, kindTransaction, st.Transactions.Items(), func(t core.Transaction) int64 { return t.ID }); err != nil {
		return err
	}
	if err := saveKind(ctx, tx, kindVendor, st.Vendors.Items(), func(v core.Vendor) int64 { return v.ID }); err != nil {
		return err
	}
	if err := saveKind(ctx, tx, kindCategory, st.Categories.Items(), func(c core.Category) int64 { return c.ID }); err != nil {
		return err
	}

	if u, ok := st.User(); ok {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user info: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO snapshot_user (id, data) VALUES (1, ?) ON CONFLICT (id) DO UPDATE SET data = excluded.data",
			string(data))
		if err != nil {
			return fmt.Errorf("save user info: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func saveKind[T any](ctx context.Context, tx *sql.Tx, kind string, items []T, key func(T) int64) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_entities (kind, id, position, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", kind, err)
	}
	defer stmt.Close()

	for pos, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode %s: %w", kind, err)
		}
		if _, err := stmt.ExecContext(ctx, kind, key(item), pos, string(data)); err != nil {
			return fmt.Errorf("insert %s %d: %w", kind, key(item), err)
		}
	}
	return nil
}

// Load seeds the store from the last saved snapshot, preserving order.
// An empty database loads nothing and returns nil.
func (s *Store) Load(ctx context.Context, st *store.Store) error {
	if err := loadKind(ctx, s.db, kindReceipt, st.Receipts.Upsert); err != nil {
		return err
	}
	if err := loadKind(ctx, s.db, kindTransaction, st.Transactions.Upsert); err != nil {
		return err
	}
	if err := loadKind(ctx, s.db, kindVendor, st.Vendors.Upsert); err != nil {
		return err
	}
	if err := loadKind(ctx, s.db, kindCategory, st.Categories.Upsert); err != nil {
		return err
	}

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM snapshot_user WHERE id = 1").Scan(&data)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return fmt.Errorf("load user info: %w", err)
	}
	var u core.UserInfo
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return fmt.Errorf("decode user info: %w", err)
	}
	st.SetUser(u)
	return nil
}

func loadKind[T any](ctx context.Context, db *sql.DB, kind string, upsert func(...T)) error {
	rows, err := db.QueryContext(ctx,
		"SELECT data FROM snapshot_entities WHERE kind = ? ORDER BY position", kind)
	if err != nil {
		return fmt.Errorf("query %s snapshot: %w", kind, err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan %s row: %w", kind, err)
		}
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return fmt.Errorf("decode %s: %w", kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s rows: %w", kind, err)
	}
	if len(items) > 0 {
		upsert(items...)
	}
	return nil
}
