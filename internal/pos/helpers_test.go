package pos

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/store"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	products map[string]store.Product
	sales    []*store.Sale
	progress store.SyncProgress

	createErr error
	countErr  error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]store.Product{},
		progress: store.SyncProgress{Source: store.CatalogSource},
	}
}

func (m *memStore) GetProducts(ctx context.Context, category string, limit int) ([]store.Product, error) {
	out := make([]store.Product, 0, len(m.products))
	for _, p := range m.products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) FindProductByCode(ctx context.Context, code string) (*store.Product, error) {
	for _, p := range m.products {
		if p.Code == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpsertProducts(ctx context.Context, products []store.Product) error {
	for _, p := range products {
		m.products[p.ID] = p
	}
	return nil
}

func (m *memStore) GetSyncProgress(ctx context.Context) (store.SyncProgress, error) {
	return m.progress, nil
}

func (m *memStore) SetSyncProgress(ctx context.Context, progress store.SyncProgress) error {
	m.progress = progress
	return nil
}

func (m *memStore) ResetSyncProgress(ctx context.Context) error {
	m.progress = store.SyncProgress{Source: store.CatalogSource}
	return nil
}

func (m *memStore) CreateSale(ctx context.Context, input store.SaleInput) (*store.Sale, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	sale := &store.Sale{
		ID:            fmt.Sprintf("sale-%d", len(m.sales)+1),
		InvoiceNumber: input.InvoiceNumber,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		Subtotal:      input.Subtotal,
		TaxAmount:     input.TaxAmount,
		TotalAmount:   input.TotalAmount,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: input.PaymentStatus,
		Items:         input.Items,
		CreatedAt:     time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		SyncStatus:    store.SyncStatusPending,
	}
	m.sales = append(m.sales, sale)
	return sale, nil
}

func (m *memStore) ListUnsyncedSales(ctx context.Context) ([]store.Sale, error) {
	out := make([]store.Sale, 0)
	for _, sale := range m.sales {
		if sale.SyncStatus == store.SyncStatusPending || sale.SyncStatus == store.SyncStatusFailed {
			out = append(out, *sale)
		}
	}
	return out, nil
}

func (m *memStore) CountUnsyncedSales(ctx context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	sales, err := m.ListUnsyncedSales(ctx)
	if err != nil {
		return 0, err
	}
	return len(sales), nil
}

func (m *memStore) findSale(id string) (*store.Sale, error) {
	for _, sale := range m.sales {
		if sale.ID == id {
			return sale, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) MarkSaleSyncing(ctx context.Context, id string) error {
	sale, err := m.findSale(id)
	if err != nil {
		return err
	}
	sale.SyncStatus = store.SyncStatusSyncing
	sale.SyncAttempts++
	return nil
}

func (m *memStore) MarkSaleSynced(ctx context.Context, id string, syncedAt time.Time) error {
	sale, err := m.findSale(id)
	if err != nil {
		return err
	}
	sale.SyncStatus = store.SyncStatusSynced
	if sale.SyncedAt == nil {
		at := syncedAt
		sale.SyncedAt = &at
	}
	sale.LastSyncError = nil
	return nil
}

func (m *memStore) MarkSaleFailed(ctx context.Context, id string, message string) error {
	sale, err := m.findSale(id)
	if err != nil {
		return err
	}
	sale.SyncStatus = store.SyncStatusFailed
	sale.LastSyncError = &message
	return nil
}

func validSaleRequest() CreateSaleRequest {
	return CreateSaleRequest{
		CustomerName:  "Walk-in",
		Subtotal:      100,
		TaxAmount:     10,
		TotalAmount:   110,
		PaymentMethod: "cash",
		PaymentStatus: "paid",
		Items: []SaleItemInput{
			{ProductID: "p1", Name: "Americano", Quantity: 2, UnitPrice: 50, LineTotal: 100},
		},
	}
}
