package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateInvoice indicates an invoice number collision on create.
	ErrDuplicateInvoice = errors.New("invoice number already exists")
)

// Store is the contract the sync controllers and the POS services operate
// against. Every write is a single atomic statement, so concurrent sync
// attempts cannot produce lost updates as long as at most one sync per
// kind is in flight.
type Store interface {
	GetProducts(ctx context.Context, category string, limit int) ([]Product, error)
	FindProductByCode(ctx context.Context, code string) (*Product, error)
	UpsertProducts(ctx context.Context, products []Product) error

	GetSyncProgress(ctx context.Context) (SyncProgress, error)
	SetSyncProgress(ctx context.Context, progress SyncProgress) error
	ResetSyncProgress(ctx context.Context) error

	CreateSale(ctx context.Context, input SaleInput) (*Sale, error)
	ListUnsyncedSales(ctx context.Context) ([]Sale, error)
	CountUnsyncedSales(ctx context.Context) (int, error)
	MarkSaleSyncing(ctx context.Context, id string) error
	MarkSaleSynced(ctx context.Context, id string, syncedAt time.Time) error
	MarkSaleFailed(ctx context.Context, id string, message string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type pgStore struct {
	db    dbtx
	pool  *pgxpool.Pool
	clock func() time.Time
}

// New constructs the PostgreSQL-backed store.
func New(pool *pgxpool.Pool) Store {
	return &pgStore{
		db:   pool,
		pool: pool,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}
