package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/store"
)

// SalesSync pushes queued local sales to the backend. Each sale is an
// independent unit of work: one failure never blocks the rest of the
// queue, and the backend treats invoice_number as an idempotency key so a
// retried push after an ambiguous failure cannot double-book.
type SalesSync struct {
	store  store.Store
	client Transport
	logger *slog.Logger
	clock  func() time.Time
}

// NewSalesSync wires the sales push controller.
func NewSalesSync(st store.Store, client Transport, logger *slog.Logger) *SalesSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalesSync{
		store:  st,
		client: client,
		logger: logger.With(slog.String("sync", string(KindSales))),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type salePushRequest struct {
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
}

type salePushResponse struct {
	SyncedAt *time.Time `json:"synced_at"`
}

// SyncSales pushes every queued sale in creation order. An empty queue
// returns immediately without a network call. Failures are isolated per
// sale; a summary error is returned after the whole queue was attempted.
func (s *SalesSync) SyncSales(ctx context.Context, baseURL, token string) (Outcome, error) {
	sales, err := s.store.ListUnsyncedSales(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("list unsynced sales: %w", err)
	}
	if len(sales) == 0 {
		return OutcomeSkipped, nil
	}

	var failed int
	var lastErr error
	for _, sale := range sales {
		if err := s.pushSale(ctx, baseURL, token, sale); err != nil {
			failed++
			lastErr = err
			s.logger.Warn("sale push failed",
				slog.String("sale_id", sale.ID),
				slog.String("invoice", sale.InvoiceNumber),
				slog.Any("error", err))
		}
	}

	if lastErr != nil {
		return OutcomeFailed, fmt.Errorf("%d of %d sales failed, last error: %w", failed, len(sales), lastErr)
	}
	s.logger.Info("sales sync completed", slog.Int("pushed", len(sales)))
	return OutcomeCompleted, nil
}

// pushSale walks one sale through pending/failed -> syncing -> synced or
// failed. The syncing transition also counts the attempt.
func (s *SalesSync) pushSale(ctx context.Context, baseURL, token string, sale store.Sale) error {
	if err := s.store.MarkSaleSyncing(ctx, sale.ID); err != nil {
		return fmt.Errorf("mark syncing: %w", err)
	}

	body := salePushRequest{
		InvoiceNumber: sale.InvoiceNumber,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		Subtotal:      sale.Subtotal,
		TaxAmount:     sale.TaxAmount,
		TotalAmount:   sale.TotalAmount,
		PaymentMethod: sale.PaymentMethod,
		PaymentStatus: sale.PaymentStatus,
		Items:         sale.Items,
		CreatedAt:     sale.CreatedAt,
	}
	res, err := s.client.Call(ctx, http.MethodPost, baseURL+"/sales", body, token)
	if err != nil {
		if markErr := s.store.MarkSaleFailed(ctx, sale.ID, err.Error()); markErr != nil {
			s.logger.Error("mark sale failed", slog.String("sale_id", sale.ID), slog.Any("error", markErr))
		}
		return err
	}

	syncedAt := s.clock()
	var echo salePushResponse
	if err := json.Unmarshal(res.Body, &echo); err == nil && echo.SyncedAt != nil {
		syncedAt = *echo.SyncedAt
	}
	if err := s.store.MarkSaleSynced(ctx, sale.ID, syncedAt); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}
