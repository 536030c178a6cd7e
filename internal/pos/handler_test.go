package pos

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/store"
	syncer "github.com/meridian-pos/meridian-pos/internal/sync"
)

type fakeTrigger struct {
	result syncer.TriggerResult
	online bool
	calls  int
}

func (f *fakeTrigger) ManualSync(ctx context.Context) syncer.TriggerResult {
	f.calls++
	return f.result
}

func (f *fakeTrigger) Online() bool { return f.online }

type fakeProgress struct {
	progress store.SyncProgress
	resets   int
}

func (f *fakeProgress) Progress(ctx context.Context) (store.SyncProgress, error) {
	return f.progress, nil
}

func (f *fakeProgress) ResetSync(ctx context.Context) error {
	f.resets++
	return nil
}

type handlerFixture struct {
	store    *memStore
	trigger  *fakeTrigger
	progress *fakeProgress
	router   chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	st := newMemStore()
	trigger := &fakeTrigger{online: true}
	progress := &fakeProgress{progress: store.SyncProgress{Source: store.CatalogSource}}

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	catalogSvc := catalog.NewService(st, nil, logger)
	handler := NewHandler(logger, NewService(st), catalogSvc, progress, trigger, true)

	router := chi.NewRouter()
	router.Route("/api", handler.MountRoutes)
	return &handlerFixture{store: st, trigger: trigger, progress: progress, router: router}
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateSale(t *testing.T) {
	fx := newHandlerFixture(t)
	body, err := json.Marshal(validSaleRequest())
	require.NoError(t, err)

	rec := fx.do(http.MethodPost, "/api/sales", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SaleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, strings.HasPrefix(resp.InvoiceNumber, "INV-"))
	assert.Equal(t, store.SyncStatusPending, resp.SyncStatus)
	assert.Len(t, fx.store.sales, 1)
}

func TestHandlerCreateSaleRejectsMalformedBody(t *testing.T) {
	fx := newHandlerFixture(t)
	rec := fx.do(http.MethodPost, "/api/sales", `{"subtotal":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.store.sales)
}

func TestHandlerCreateSaleRejectsAmountMismatch(t *testing.T) {
	fx := newHandlerFixture(t)
	req := validSaleRequest()
	req.TotalAmount = 999
	body, err := json.Marshal(req)
	require.NoError(t, err)

	rec := fx.do(http.MethodPost, "/api/sales", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Validation Failed", problem["title"])
}

func TestHandlerUnsyncedCount(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.store.sales = append(fx.store.sales, &store.Sale{ID: "s1", SyncStatus: store.SyncStatusPending})
	fx.store.sales = append(fx.store.sales, &store.Sale{ID: "s2", SyncStatus: store.SyncStatusSynced})
	fx.store.sales = append(fx.store.sales, &store.Sale{ID: "s3", SyncStatus: store.SyncStatusFailed})

	rec := fx.do(http.MethodGet, "/api/sales/unsynced-count", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["unsynced_count"])
}

func TestHandlerListProducts(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.store.products["p1"] = store.Product{ID: "p1", Name: "Americano", Category: "drinks", Code: "A1"}
	fx.store.products["p2"] = store.Product{ID: "p2", Name: "Croissant", Category: "food", Code: "C1"}

	rec := fx.do(http.MethodGet, "/api/products?category=drinks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []store.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Americano", resp.Data[0].Name)
}

func TestHandlerListProductsRejectsBadLimit(t *testing.T) {
	fx := newHandlerFixture(t)
	rec := fx.do(http.MethodGet, "/api/products?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerProductByCode(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.store.products["p1"] = store.Product{ID: "p1", Name: "Americano", Code: "A1"}

	rec := fx.do(http.MethodGet, "/api/products/code/A1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var product store.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	assert.Equal(t, "p1", product.ID)

	rec = fx.do(http.MethodGet, "/api/products/code/ZZ", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerSyncProgress(t *testing.T) {
	fx := newHandlerFixture(t)
	last := 5
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	fx.progress.progress = store.SyncProgress{
		Source:        store.CatalogSource,
		CurrentPage:   2,
		LastPage:      &last,
		LastSyncAt:    &at,
		TotalProducts: 40,
	}

	rec := fx.do(http.MethodGet, "/api/sync/progress", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var progress store.SyncProgress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
	assert.Equal(t, 2, progress.CurrentPage)
	require.NotNil(t, progress.LastPage)
	assert.Equal(t, 5, *progress.LastPage)
	assert.False(t, progress.IsCompleted)
}

func TestHandlerTriggerSync(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.trigger.result = syncer.TriggerResult{
		Sales:    syncer.OutcomeCompleted,
		Products: syncer.OutcomeSkipped,
	}

	rec := fx.do(http.MethodPost, "/api/sync/trigger", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.trigger.calls)

	var result syncer.TriggerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, syncer.OutcomeCompleted, result.Sales)
	assert.Equal(t, syncer.OutcomeSkipped, result.Products)
}

func TestHandlerResetCatalogSync(t *testing.T) {
	fx := newHandlerFixture(t)
	rec := fx.do(http.MethodPost, "/api/sync/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fx.progress.resets)
}

func TestHandlerConfig(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.trigger.online = false

	rec := fx.do(http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, true, cfg["tax_enabled"])
	assert.Equal(t, false, cfg["online"])
}
