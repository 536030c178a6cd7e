// Package pos captures sales at the counter and exposes the terminal's
// local state surfaces to the UI layer.
package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/store"
)

// totalTolerance absorbs float rounding when checking the amount
// invariant; amounts are currency values with at most two decimals.
const totalTolerance = 0.005

// Service validates and persists sales. A sale is written once; only the
// sync controllers mutate its sync fields afterwards.
type Service struct {
	store    store.Store
	validate *validator.Validate
	clock    func() time.Time
}

// NewService constructs the sale capture service.
func NewService(st store.Store) *Service {
	return &Service{
		store:    st,
		validate: validator.New(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// CreateSale validates the request, enforces the amount invariant
// total_amount = subtotal + tax_amount and queues the sale for sync.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (*store.Sale, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, validationDetail(err))
	}
	if math.Abs(req.TotalAmount-(req.Subtotal+req.TaxAmount)) > totalTolerance {
		return nil, fmt.Errorf("%w: total_amount must equal subtotal + tax_amount", httpx.ErrValidation)
	}

	items, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}

	sale, err := s.store.CreateSale(ctx, store.SaleInput{
		InvoiceNumber: s.newInvoiceNumber(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Subtotal:      req.Subtotal,
		TaxAmount:     req.TaxAmount,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		Items:         items,
	})
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	return sale, nil
}

// UnsyncedCount reports how many sales still await backend confirmation.
func (s *Service) UnsyncedCount(ctx context.Context) (int, error) {
	return s.store.CountUnsyncedSales(ctx)
}

// newInvoiceNumber builds a terminal-unique invoice number. It doubles as
// the idempotency key the backend dedupes repeated pushes on.
func (s *Service) newInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", s.clock().Format("20060102"), suffix)
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
