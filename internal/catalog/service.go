// Package catalog is the read side of the locally cached product catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meridian-pos/meridian-pos/internal/store"
)

// Service answers product queries from the local store, with a Redis
// cache in front of the hot lookups. Only the product sync controller
// writes products; this service never mutates them.
type Service struct {
	store  store.Store
	cache  *Cache
	logger *slog.Logger
}

// NewService wires the catalog read service. Cache may be nil; lookups
// then go straight to the store.
func NewService(st store.Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, cache: cache, logger: logger}
}

// Products lists products, optionally filtered by category.
func (s *Service) Products(ctx context.Context, category string, limit int) ([]store.Product, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "list", category, strconv.Itoa(limit))
	if err != nil {
		s.logger.Warn("catalog cache key", slog.Any("error", err))
		return s.store.GetProducts(ctx, category, limit)
	}
	var products []store.Product
	err = s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (interface{}, error) {
		return s.store.GetProducts(ctx, category, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return products, nil
}

// FindByCode resolves a scannable product code.
func (s *Service) FindByCode(ctx context.Context, code string) (*store.Product, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "code", code)
	if err != nil {
		s.logger.Warn("catalog cache key", slog.Any("error", err))
		return s.store.FindProductByCode(ctx, code)
	}
	var product store.Product
	err = s.cache.FetchJSON(ctx, key, &product, func(ctx context.Context) (interface{}, error) {
		p, err := s.store.FindProductByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Invalidate drops all cached catalog entries. Called after a completed
// catalog sync run so lookups see the fresh rows.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog cache invalidate", slog.Any("error", err))
	}
}
