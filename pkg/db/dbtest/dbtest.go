// Package dbtest opens throwaway in-memory SQLite databases for repository
// and service tests. The schema mirrors the production migrations minus the
// Postgres-only pieces (enum types, gen_random_uuid defaults), so tests must
// set IDs explicitly.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zenstore/zenstore-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE store_connections (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		shop_domain TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		connection_id TEXT NOT NULL,
		operator_id TEXT NOT NULL,
		platform_order_id TEXT NOT NULL,
		order_number TEXT NOT NULL,
		customer_name TEXT,
		customer_email TEXT,
		customer_phone TEXT,
		shipping_address TEXT,
		currency TEXT NOT NULL DEFAULT 'INR',
		subtotal_paise INTEGER NOT NULL DEFAULT 0,
		tax_paise INTEGER NOT NULL DEFAULT 0,
		shipping_paise INTEGER NOT NULL DEFAULT 0,
		total_paise INTEGER NOT NULL DEFAULT 0,
		platform_financial_status TEXT,
		platform_fulfillment_status TEXT,
		placed_at DATETIME,
		zen_status TEXT NOT NULL DEFAULT 'platform_native',
		product_cost_paise INTEGER NOT NULL DEFAULT 0,
		shipping_cost_paise INTEGER NOT NULL DEFAULT 0,
		service_fee_paise INTEGER NOT NULL DEFAULT 0,
		wallet_charge_paise INTEGER NOT NULL DEFAULT 0,
		charged_at DATETIME,
		wallet_transaction_ref TEXT,
		shortage_paise INTEGER NOT NULL DEFAULT 0,
		courier_name TEXT,
		tracking_number TEXT,
		assignee_id TEXT,
		delivered_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (connection_id, platform_order_id)
	)`,
	`CREATE TABLE order_line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		platform_product_id TEXT NOT NULL,
		platform_variant_id TEXT,
		title TEXT NOT NULL,
		qty INTEGER NOT NULL,
		unit_price_paise INTEGER NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE order_notes (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		author_id TEXT,
		content TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE wallet_accounts (
		operator_id TEXT PRIMARY KEY,
		balance_paise INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'INR',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE wallet_transactions (
		id TEXT PRIMARY KEY,
		operator_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount_paise INTEGER NOT NULL,
		idempotency_key TEXT,
		reference TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX ux_wallet_transactions_idempotency_key
		ON wallet_transactions (idempotency_key)
		WHERE idempotency_key IS NOT NULL`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
}

// Open returns a fresh database with the full schema applied. Each call gets
// its own in-memory instance; it lives until the test's connections close.
func Open(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	return open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

// OpenFile is like Open but file-backed, with write transactions taking the
// database lock up front. Concurrency tests need this: goroutines racing the
// same row then serialize through SQLite's write lock instead of tripping
// over the shared in-memory cache.
func OpenFile(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000",
		filepath.Join(t.TempDir(), "zenstore.db"))
	return open(t, dsn)
}

func open(t *testing.T, dsn string) (*db.Client, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	client := db.NewWithConn(conn)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, conn
}
