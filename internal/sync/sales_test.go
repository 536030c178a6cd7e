package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/store"
	"github.com/meridian-pos/meridian-pos/internal/transport"
)

func TestSyncSalesEmptyQueueSkipsNetwork(t *testing.T) {
	st := newFakeStore()
	tr := &fakeTransport{}
	controller := NewSalesSync(st, tr, nil)

	outcome, err := controller.SyncSales(context.Background(), testBaseURL, "tok")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Zero(t, tr.callCount())
}

func TestSyncSalesPushesOldestFirst(t *testing.T) {
	st := newFakeStore()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	st.addSale("INV-3", base.Add(2*time.Minute))
	st.addSale("INV-1", base)
	st.addSale("INV-2", base.Add(time.Minute))

	tr := &fakeTransport{handler: func(call fakeCall) (*transport.Response, error) {
		return &transport.Response{Status: 201, Body: []byte(`{}`)}, nil
	}}
	controller := NewSalesSync(st, tr, nil)

	outcome, err := controller.SyncSales(context.Background(), testBaseURL, "tok")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	require.Equal(t, 3, tr.callCount())

	invoices := make([]string, 0, 3)
	for _, call := range tr.calls {
		req, ok := call.Body.(salePushRequest)
		require.True(t, ok)
		invoices = append(invoices, req.InvoiceNumber)
		assert.Equal(t, testBaseURL+"/sales", call.URL)
		assert.Equal(t, "tok", call.Token)
		assert.InDelta(t, req.Subtotal+req.TaxAmount, req.TotalAmount, 0.005)
	}
	assert.Equal(t, []string{"INV-1", "INV-2", "INV-3"}, invoices)

	for _, sale := range st.sales {
		assert.Equal(t, store.SyncStatusSynced, sale.SyncStatus)
		assert.Equal(t, 1, sale.SyncAttempts)
		assert.NotNil(t, sale.SyncedAt)
		assert.Nil(t, sale.LastSyncError)
	}
}

func TestSyncSalesIsolatesFailures(t *testing.T) {
	st := newFakeStore()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	st.addSale("INV-1", base)
	st.addSale("INV-2", base.Add(time.Minute))
	st.addSale("INV-3", base.Add(2*time.Minute))

	tr := &fakeTransport{handler: func(call fakeCall) (*transport.Response, error) {
		req := call.Body.(salePushRequest)
		if req.InvoiceNumber == "INV-2" {
			return nil, &transport.Error{Status: 500, Message: "boom"}
		}
		return &transport.Response{Status: 201, Body: []byte(`{}`)}, nil
	}}
	controller := NewSalesSync(st, tr, nil)

	outcome, err := controller.SyncSales(context.Background(), testBaseURL, "tok")
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Contains(t, err.Error(), "1 of 3 sales failed")
	// The whole queue was still attempted.
	assert.Equal(t, 3, tr.callCount())

	byInvoice := map[string]*store.Sale{}
	for _, sale := range st.sales {
		byInvoice[sale.InvoiceNumber] = sale
	}
	assert.Equal(t, store.SyncStatusSynced, byInvoice["INV-1"].SyncStatus)
	assert.Equal(t, store.SyncStatusSynced, byInvoice["INV-3"].SyncStatus)

	failed := byInvoice["INV-2"]
	assert.Equal(t, store.SyncStatusFailed, failed.SyncStatus)
	assert.Equal(t, 1, failed.SyncAttempts)
	require.NotNil(t, failed.LastSyncError)
	assert.Contains(t, *failed.LastSyncError, "boom")
	assert.Nil(t, failed.SyncedAt)
}

func TestSyncSalesUsesRemoteConfirmationTime(t *testing.T) {
	st := newFakeStore()
	sale := st.addSale("INV-1", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	remoteTime := time.Date(2024, 6, 1, 10, 5, 42, 0, time.UTC)

	tr := &fakeTransport{handler: func(call fakeCall) (*transport.Response, error) {
		return &transport.Response{Status: 201, Body: []byte(`{"synced_at":"2024-06-01T10:05:42Z"}`)}, nil
	}}
	controller := NewSalesSync(st, tr, nil)

	_, err := controller.SyncSales(context.Background(), testBaseURL, "tok")
	require.NoError(t, err)
	require.NotNil(t, sale.SyncedAt)
	assert.True(t, sale.SyncedAt.Equal(remoteTime))
}

func TestSyncSalesRetryIncrementsAttempts(t *testing.T) {
	st := newFakeStore()
	sale := st.addSale("INV-1", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	tr := &fakeTransport{handler: func(call fakeCall) (*transport.Response, error) {
		return nil, &transport.Error{Message: "network down"}
	}}
	controller := NewSalesSync(st, tr, nil)
	ctx := context.Background()

	_, err := controller.SyncSales(ctx, testBaseURL, "tok")
	require.Error(t, err)
	assert.Equal(t, 1, sale.SyncAttempts)
	assert.Equal(t, store.SyncStatusFailed, sale.SyncStatus)

	// A failed sale stays queued and the next run retries it with the
	// same invoice number.
	tr.handler = func(call fakeCall) (*transport.Response, error) {
		return &transport.Response{Status: 201, Body: []byte(`{}`)}, nil
	}
	outcome, err := controller.SyncSales(ctx, testBaseURL, "tok")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, 2, sale.SyncAttempts)
	assert.Equal(t, store.SyncStatusSynced, sale.SyncStatus)
	last := tr.calls[len(tr.calls)-1].Body.(salePushRequest)
	assert.Equal(t, "INV-1", last.InvoiceNumber)
}
