package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

const defaultProductLimit = 100

func (s *pgStore) GetProducts(ctx context.Context, category string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, price, category, code, raw_response, updated_at
		FROM products
		WHERE ($1 = '' OR category = $1)
		ORDER BY name
		LIMIT $2`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	return products, nil
}

func (s *pgStore) FindProductByCode(ctx context.Context, code string) (*Product, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, price, category, code, raw_response, updated_at
		FROM products
		WHERE code = $1
		LIMIT 1`, code)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProducts applies a bulk insert-or-update keyed by product id.
// Re-applying an identical batch leaves the table unchanged beyond the
// updated_at column, which tracks the last ingestion.
func (s *pgStore) UpsertProducts(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	now := s.clock()
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, p := range products {
			_, err := tx.Exec(ctx, `
				INSERT INTO products (id, name, price, category, code, raw_response, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					price = EXCLUDED.price,
					category = EXCLUDED.category,
					code = EXCLUDED.code,
					raw_response = EXCLUDED.raw_response,
					updated_at = EXCLUDED.updated_at`,
				p.ID, p.Name, p.Price, p.Category, p.Code, p.RawResponse, now)
			if err != nil {
				return fmt.Errorf("store: upsert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Code, &p.RawResponse, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, pgx.ErrNoRows
		}
		return Product{}, fmt.Errorf("store: scan product: %w", err)
	}
	return p, nil
}
