package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSyncProgress loads the catalog checkpoint. A missing row is the
// initial state, not an error.
func (s *pgStore) GetSyncProgress(ctx context.Context) (SyncProgress, error) {
	row := s.db.QueryRow(ctx, `
		SELECT source, current_page, last_page, is_completed, last_sync_at, total_products
		FROM sync_progress
		WHERE source = $1`, CatalogSource)

	var p SyncProgress
	err := row.Scan(&p.Source, &p.CurrentPage, &p.LastPage, &p.IsCompleted, &p.LastSyncAt, &p.TotalProducts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SyncProgress{Source: CatalogSource}, nil
		}
		return SyncProgress{}, fmt.Errorf("store: get sync progress: %w", err)
	}
	return p, nil
}

// SetSyncProgress writes the checkpoint in one atomic statement.
func (s *pgStore) SetSyncProgress(ctx context.Context, progress SyncProgress) error {
	if progress.Source == "" {
		progress.Source = CatalogSource
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sync_progress (source, current_page, last_page, is_completed, last_sync_at, total_products)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source) DO UPDATE SET
			current_page = EXCLUDED.current_page,
			last_page = EXCLUDED.last_page,
			is_completed = EXCLUDED.is_completed,
			last_sync_at = EXCLUDED.last_sync_at,
			total_products = EXCLUDED.total_products`,
		progress.Source, progress.CurrentPage, progress.LastPage, progress.IsCompleted, progress.LastSyncAt, progress.TotalProducts)
	if err != nil {
		return fmt.Errorf("store: set sync progress: %w", err)
	}
	return nil
}

// ResetSyncProgress returns the checkpoint to its initial state so a full
// resync starts again from page 1.
func (s *pgStore) ResetSyncProgress(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sync_progress (source, current_page, last_page, is_completed, last_sync_at, total_products)
		VALUES ($1, 0, NULL, FALSE, NULL, 0)
		ON CONFLICT (source) DO UPDATE SET
			current_page = 0,
			last_page = NULL,
			is_completed = FALSE,
			last_sync_at = NULL,
			total_products = 0`, CatalogSource)
	if err != nil {
		return fmt.Errorf("store: reset sync progress: %w", err)
	}
	return nil
}
