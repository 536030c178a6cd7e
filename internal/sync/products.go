package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/store"
	"github.com/meridian-pos/meridian-pos/internal/transport"
)

// Transport is the single outbound operation the controllers need.
type Transport interface {
	Call(ctx context.Context, method, url string, body any, token string) (*transport.Response, error)
}

// ProductSync pulls the paginated remote catalog into the local store.
// Each page is committed before the next is requested, so a failed run
// loses at most the in-flight page and resumes from the same page.
type ProductSync struct {
	store  store.Store
	client Transport
	logger *slog.Logger
	clock  func() time.Time
}

// NewProductSync wires the catalog pull controller.
func NewProductSync(st store.Store, client Transport, logger *slog.Logger) *ProductSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductSync{
		store:  st,
		client: client,
		logger: logger.With(slog.String("sync", string(KindProducts))),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type catalogPage struct {
	Data     []json.RawMessage `json:"data"`
	LastPage *int              `json:"last_page"`
}

type remoteProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Code     string  `json:"code"`
}

// StartSync runs the catalog pull until the checkpoint reaches the last
// page. A completed checkpoint short-circuits without network activity;
// ResetSync clears it to permit a full resync.
func (s *ProductSync) StartSync(ctx context.Context, baseURL, token string) (Outcome, error) {
	progress, err := s.store.GetSyncProgress(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load progress: %w", err)
	}
	if progress.IsCompleted {
		s.logger.Debug("catalog already synced, nothing to do")
		return OutcomeSkipped, nil
	}

	for {
		page := progress.CurrentPage + 1
		updated, err := s.pullPage(ctx, baseURL, token, progress, page)
		if err != nil {
			return OutcomeFailed, err
		}
		progress = updated
		if progress.IsCompleted {
			s.logger.Info("catalog sync completed",
				slog.Int("pages", progress.CurrentPage),
				slog.Int("total_products", progress.TotalProducts))
			return OutcomeCompleted, nil
		}
	}
}

// pullPage fetches one page, upserts its products and advances the
// checkpoint. Progress is only written after the page has been committed
// to the store, which is the resumability guarantee.
func (s *ProductSync) pullPage(ctx context.Context, baseURL, token string, progress store.SyncProgress, page int) (store.SyncProgress, error) {
	url := fmt.Sprintf("%s/products?page=%d", baseURL, page)
	res, err := s.client.Call(ctx, http.MethodGet, url, nil, token)
	if err != nil {
		return progress, fmt.Errorf("fetch page %d: %w", page, err)
	}

	var payload catalogPage
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		return progress, Validationf("page %d: %v", page, err)
	}
	if payload.LastPage == nil {
		return progress, Validationf("page %d: missing last_page", page)
	}
	lastPage := *payload.LastPage
	if lastPage < page {
		// The remote catalog shrank since the last run; every page it
		// still has is already committed, so the pull is done.
		now := s.clock()
		progress.Source = store.CatalogSource
		progress.CurrentPage = lastPage
		progress.LastPage = &lastPage
		progress.LastSyncAt = &now
		progress.IsCompleted = true
		if err := s.store.SetSyncProgress(ctx, progress); err != nil {
			return progress, fmt.Errorf("complete shrunk catalog at page %d: %w", lastPage, err)
		}
		s.logger.Info("remote catalog shrank, marking sync complete",
			slog.Int("page", page),
			slog.Int("last_page", lastPage))
		return progress, nil
	}

	products := make([]store.Product, 0, len(payload.Data))
	for i, raw := range payload.Data {
		product, err := mapRemoteProduct(raw)
		if err != nil {
			return progress, Validationf("page %d record %d: %v", page, i, err)
		}
		products = append(products, product)
	}

	if err := s.store.UpsertProducts(ctx, products); err != nil {
		return progress, fmt.Errorf("upsert page %d: %w", page, err)
	}

	now := s.clock()
	progress.Source = store.CatalogSource
	progress.CurrentPage = page
	progress.LastPage = &lastPage
	progress.TotalProducts += len(products)
	progress.LastSyncAt = &now
	progress.IsCompleted = page >= lastPage
	if err := s.store.SetSyncProgress(ctx, progress); err != nil {
		return progress, fmt.Errorf("advance progress to page %d: %w", page, err)
	}

	s.logger.Debug("catalog page committed",
		slog.Int("page", page),
		slog.Int("last_page", lastPage),
		slog.Int("products", len(products)))
	return progress, nil
}

// Progress exposes the current checkpoint for the UI surfaces.
func (s *ProductSync) Progress(ctx context.Context) (store.SyncProgress, error) {
	return s.store.GetSyncProgress(ctx)
}

// ResetSync clears the checkpoint so the next run starts from page 1.
func (s *ProductSync) ResetSync(ctx context.Context) error {
	if err := s.store.ResetSyncProgress(ctx); err != nil {
		return err
	}
	s.logger.Info("catalog sync progress reset")
	return nil
}

func mapRemoteProduct(raw json.RawMessage) (store.Product, error) {
	var remote remoteProduct
	if err := json.Unmarshal(raw, &remote); err != nil {
		return store.Product{}, err
	}
	if remote.ID == "" {
		return store.Product{}, fmt.Errorf("missing id")
	}
	if remote.Name == "" {
		return store.Product{}, fmt.Errorf("missing name for product %s", remote.ID)
	}
	return store.Product{
		ID:          remote.ID,
		Name:        remote.Name,
		Price:       remote.Price,
		Category:    remote.Category,
		Code:        remote.Code,
		RawResponse: raw,
	}, nil
}
