package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL DEFAULT 0,
		category TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		raw_response JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_code ON products (code) WHERE code <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	`CREATE TABLE IF NOT EXISTS sync_progress (
		source TEXT PRIMARY KEY,
		current_page INT NOT NULL DEFAULT 0,
		last_page INT,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		last_sync_at TIMESTAMPTZ,
		total_products INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		subtotal NUMERIC NOT NULL,
		tax_amount NUMERIC NOT NULL,
		total_amount NUMERIC NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		items JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		synced_at TIMESTAMPTZ,
		sync_status TEXT NOT NULL DEFAULT 'pending',
		sync_attempts INT NOT NULL DEFAULT 0,
		last_sync_error TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_unsynced ON sales (created_at) WHERE sync_status IN ('pending','failed')`,
}

// Migrate applies the terminal schema. Statements are idempotent so the
// terminal can run it on every boot.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
