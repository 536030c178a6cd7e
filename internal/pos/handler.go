package pos

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/store"
	syncer "github.com/meridian-pos/meridian-pos/internal/sync"
)

// Triggerer is the slice of the orchestrator the HTTP surface needs.
type Triggerer interface {
	ManualSync(ctx context.Context) syncer.TriggerResult
	Online() bool
}

// ProgressReader exposes the catalog checkpoint and reset.
type ProgressReader interface {
	Progress(ctx context.Context) (store.SyncProgress, error)
	ResetSync(ctx context.Context) error
}

// Handler serves the terminal's local API. All sync state is read-only
// from here except the manual trigger and the catalog reset.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	catalog    *catalog.Service
	progress   ProgressReader
	trigger    Triggerer
	taxEnabled bool
}

// NewHandler wires the HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, catalogSvc *catalog.Service, progress ProgressReader, trigger Triggerer, taxEnabled bool) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		catalog:    catalogSvc,
		progress:   progress,
		trigger:    trigger,
		taxEnabled: taxEnabled,
	}
}

// CreateSale records a completed transaction and queues it for sync.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	sale, err := h.service.CreateSale(r.Context(), req)
	if err != nil {
		h.logger.Warn("create sale", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSaleResponse(sale))
}

// UnsyncedCount reports how many sales still await backend confirmation.
func (h *Handler) UnsyncedCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnsyncedCount(r.Context())
	if err != nil {
		h.logger.Error("unsynced count", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"unsynced_count": count})
}

// ListProducts serves the locally cached catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	products, err := h.catalog.Products(r.Context(), category, limit)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// ProductByCode resolves a scanned product code.
func (h *Handler) ProductByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	product, err := h.catalog.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no product with code "+code)
			return
		}
		h.logger.Error("product by code", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// SyncProgress exposes the catalog checkpoint.
func (h *Handler) SyncProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.progress.Progress(r.Context())
	if err != nil {
		h.logger.Error("sync progress", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}

// TriggerSync runs a manual sync of both kinds and reports the outcomes.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result := h.trigger.ManualSync(r.Context())
	httpx.JSON(w, http.StatusOK, result)
}

// ResetCatalogSync clears the catalog checkpoint for a full resync.
func (h *Handler) ResetCatalogSync(w http.ResponseWriter, r *http.Request) {
	if err := h.progress.ResetSync(r.Context()); err != nil {
		h.logger.Error("reset catalog sync", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Config exposes the flags the UI layer needs.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tax_enabled": h.taxEnabled,
		"online":      h.trigger.Online(),
	})
}
