package sync

import (
	"context"
	"fmt"
	"sort"
	stdsync "sync"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/store"
	"github.com/meridian-pos/meridian-pos/internal/transport"
)

// fakeStore is an in-memory Store for controller tests.
type fakeStore struct {
	mu stdsync.Mutex

	products map[string]store.Product
	progress store.SyncProgress
	sales    map[string]*store.Sale

	nextID      int
	clock       time.Time
	upsertCalls int
	listCalls   int

	failUpsert error
	failList   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]store.Product{},
		progress: store.SyncProgress{Source: store.CatalogSource},
		sales:    map[string]*store.Sale{},
		clock:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) addSale(invoice string, createdAt time.Time) *store.Sale {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sale := &store.Sale{
		ID:            fmt.Sprintf("sale-%d", f.nextID),
		InvoiceNumber: invoice,
		Subtotal:      100,
		TaxAmount:     10,
		TotalAmount:   110,
		PaymentMethod: "cash",
		PaymentStatus: "paid",
		Items:         []byte(`[{"product_id":"p1","quantity":1}]`),
		CreatedAt:     createdAt,
		SyncStatus:    store.SyncStatusPending,
	}
	f.sales[sale.ID] = sale
	return sale
}

func (f *fakeStore) GetProducts(ctx context.Context, category string, limit int) ([]store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) FindProductByCode(ctx context.Context, code string) (*store.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Code == code {
			cp := p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UpsertProducts(ctx context.Context, products []store.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.failUpsert != nil {
		return f.failUpsert
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return nil
}

func (f *fakeStore) GetSyncProgress(ctx context.Context) (store.SyncProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress, nil
}

func (f *fakeStore) SetSyncProgress(ctx context.Context, progress store.SyncProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = progress
	return nil
}

func (f *fakeStore) ResetSyncProgress(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = store.SyncProgress{Source: store.CatalogSource}
	return nil
}

func (f *fakeStore) CreateSale(ctx context.Context, input store.SaleInput) (*store.Sale, error) {
	sale := f.addSale(input.InvoiceNumber, f.clock)
	return sale, nil
}

func (f *fakeStore) ListUnsyncedSales(ctx context.Context) ([]store.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]store.Sale, 0)
	for _, sale := range f.sales {
		if sale.SyncStatus == store.SyncStatusPending || sale.SyncStatus == store.SyncStatusFailed {
			out = append(out, *sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CountUnsyncedSales(ctx context.Context) (int, error) {
	sales, err := f.ListUnsyncedSales(ctx)
	if err != nil {
		return 0, err
	}
	return len(sales), nil
}

func (f *fakeStore) MarkSaleSyncing(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.SyncStatus = store.SyncStatusSyncing
	sale.SyncAttempts++
	return nil
}

func (f *fakeStore) MarkSaleSynced(ctx context.Context, id string, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.SyncStatus = store.SyncStatusSynced
	if sale.SyncedAt == nil {
		at := syncedAt
		sale.SyncedAt = &at
	}
	sale.LastSyncError = nil
	return nil
}

func (f *fakeStore) MarkSaleFailed(ctx context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sale, ok := f.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.SyncStatus = store.SyncStatusFailed
	sale.LastSyncError = &message
	return nil
}

// fakeCall records one outbound request the controller made.
type fakeCall struct {
	Method string
	URL    string
	Body   any
	Token  string
}

// fakeTransport scripts backend behaviour through a handler function.
type fakeTransport struct {
	mu      stdsync.Mutex
	calls   []fakeCall
	handler func(call fakeCall) (*transport.Response, error)
}

func (f *fakeTransport) Call(ctx context.Context, method, url string, body any, token string) (*transport.Response, error) {
	call := fakeCall{Method: method, URL: url, Body: body, Token: token}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.handler
	f.mu.Unlock()
	if handler == nil {
		return nil, &transport.Error{Message: "no handler configured"}
	}
	return handler(call)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) callURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls := make([]string, len(f.calls))
	for i, c := range f.calls {
		urls[i] = c.URL
	}
	return urls
}

// catalogPageJSON builds a fake catalog page response.
func catalogPageJSON(lastPage int, count int, firstID int) []byte {
	body := `{"data":[`
	for i := 0; i < count; i++ {
		if i > 0 {
			body += ","
		}
		id := firstID + i
		body += fmt.Sprintf(`{"id":"p%d","name":"Product %d","price":%d.5,"category":"drinks","code":"C%d"}`, id, id, id, id)
	}
	body += fmt.Sprintf(`],"last_page":%d}`, lastPage)
	return []byte(body)
}
