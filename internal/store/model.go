// Package store is the terminal's durable record of products, sales and
// sync checkpoints. It is the only owner of persisted rows; the sync
// controllers read and mutate them exclusively through this package.
package store

import (
	"encoding/json"
	"time"
)

// SyncStatus tracks the push lifecycle of a sale.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// CatalogSource identifies the singleton checkpoint row for the product catalog.
const CatalogSource = "catalog"

// Product is a row of the locally cached remote catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       float64         `json:"price"`
	Category    string          `json:"category,omitempty"`
	Code        string          `json:"code,omitempty"`
	RawResponse json.RawMessage `json:"raw_response,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SyncProgress is the checkpoint of the paginated catalog pull.
// CurrentPage only moves forward; IsCompleted flips true once the last
// page has been ingested without error.
type SyncProgress struct {
	Source        string     `json:"source"`
	CurrentPage   int        `json:"current_page"`
	LastPage      *int       `json:"last_page"`
	IsCompleted   bool       `json:"is_completed"`
	LastSyncAt    *time.Time `json:"last_sync_at"`
	TotalProducts int        `json:"total_products"`
}

// Sale is the local write-ahead record of a completed transaction. Only
// its sync-related fields mutate after creation.
type Sale struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Subtotal      float64         `json:"subtotal"`
	TaxAmount     float64         `json:"tax_amount"`
	TotalAmount   float64         `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Items         json.RawMessage `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	SyncedAt      *time.Time      `json:"synced_at"`
	SyncStatus    SyncStatus      `json:"sync_status"`
	SyncAttempts  int             `json:"sync_attempts"`
	LastSyncError *string         `json:"last_sync_error"`
}

// SaleInput carries the immutable fields of a new sale. The store assigns
// id, created_at and the initial sync state.
type SaleInput struct {
	InvoiceNumber string
	CustomerName  string
	CustomerPhone string
	Subtotal      float64
	TaxAmount     float64
	TotalAmount   float64
	PaymentMethod string
	PaymentStatus string
	Items         json.RawMessage
}
