package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// CreateSale persists a new write-ahead sale record. The store assigns
// the id and creation time; the record starts pending with zero attempts.
func (s *pgStore) CreateSale(ctx context.Context, input SaleInput) (*Sale, error) {
	sale := Sale{
		ID:            uuid.NewString(),
		InvoiceNumber: input.InvoiceNumber,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Subtotal:      input.Subtotal,
		TaxAmount:     input.TaxAmount,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: input.PaymentStatus,
		Items:         input.Items,
		CreatedAt:     s.clock(),
		SyncStatus:    SyncStatusPending,
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sales (
			id, invoice_number, customer_name, customer_phone,
			subtotal, tax_amount, total_amount,
			payment_method, payment_status, items,
			created_at, sync_status, sync_attempts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0)`,
		sale.ID, sale.InvoiceNumber, sale.CustomerName, sale.CustomerPhone,
		sale.Subtotal, sale.TaxAmount, sale.TotalAmount,
		sale.PaymentMethod, sale.PaymentStatus, sale.Items,
		sale.CreatedAt, sale.SyncStatus)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateInvoice
		}
		return nil, fmt.Errorf("store: create sale: %w", err)
	}
	return &sale, nil
}

// ListUnsyncedSales returns pending and failed sales oldest first, so a
// sync run pushes them in creation order.
func (s *pgStore) ListUnsyncedSales(ctx context.Context) ([]Sale, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, invoice_number, customer_name, customer_phone,
			subtotal, tax_amount, total_amount,
			payment_method, payment_status, items,
			created_at, synced_at, sync_status, sync_attempts, last_sync_error
		FROM sales
		WHERE sync_status IN ($1, $2)
		ORDER BY created_at ASC`, SyncStatusPending, SyncStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("store: list unsynced sales: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(
			&sale.ID, &sale.InvoiceNumber, &sale.CustomerName, &sale.CustomerPhone,
			&sale.Subtotal, &sale.TaxAmount, &sale.TotalAmount,
			&sale.PaymentMethod, &sale.PaymentStatus, &sale.Items,
			&sale.CreatedAt, &sale.SyncedAt, &sale.SyncStatus, &sale.SyncAttempts, &sale.LastSyncError,
		); err != nil {
			return nil, fmt.Errorf("store: scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list unsynced sales: %w", err)
	}
	return sales, nil
}

func (s *pgStore) CountUnsyncedSales(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM sales WHERE sync_status IN ($1, $2)`,
		SyncStatusPending, SyncStatusFailed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count unsynced sales: %w", err)
	}
	return count, nil
}

// MarkSaleSyncing transitions a sale into syncing and counts the attempt
// in the same atomic statement.
func (s *pgStore) MarkSaleSyncing(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sales
		SET sync_status = $2, sync_attempts = sync_attempts + 1
		WHERE id = $1`, id, SyncStatusSyncing)
	if err != nil {
		return fmt.Errorf("store: mark sale syncing: %w", err)
	}
	return requireRow(tag)
}

// MarkSaleSynced records remote confirmation. synced_at is set exactly
// once; a second call for the same sale keeps the original timestamp.
func (s *pgStore) MarkSaleSynced(ctx context.Context, id string, syncedAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sales
		SET sync_status = $2,
			synced_at = COALESCE(synced_at, $3),
			last_sync_error = NULL
		WHERE id = $1`, id, SyncStatusSynced, syncedAt)
	if err != nil {
		return fmt.Errorf("store: mark sale synced: %w", err)
	}
	return requireRow(tag)
}

func (s *pgStore) MarkSaleFailed(ctx context.Context, id string, message string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sales
		SET sync_status = $2, last_sync_error = $3
		WHERE id = $1`, id, SyncStatusFailed, message)
	if err != nil {
		return fmt.Errorf("store: mark sale failed: %w", err)
	}
	return requireRow(tag)
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
