package pos

import (
	"time"

	"github.com/meridian-pos/meridian-pos/internal/store"
)

// SaleItemInput is one line of a captured sale.
type SaleItemInput struct {
	ProductID string  `json:"product_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	LineTotal float64 `json:"line_total" validate:"gte=0"`
}

// CreateSaleRequest captures a completed transaction at the counter.
type CreateSaleRequest struct {
	CustomerName  string          `json:"customer_name" validate:"max=200"`
	CustomerPhone string          `json:"customer_phone" validate:"max=50"`
	Subtotal      float64         `json:"subtotal" validate:"gte=0"`
	TaxAmount     float64         `json:"tax_amount" validate:"gte=0"`
	TotalAmount   float64         `json:"total_amount" validate:"gte=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=50"`
	PaymentStatus string          `json:"payment_status" validate:"required,max=50"`
	Items         []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// SaleResponse is the sale as returned to the UI layer.
type SaleResponse struct {
	ID            string           `json:"id"`
	InvoiceNumber string           `json:"invoice_number"`
	TotalAmount   float64          `json:"total_amount"`
	CreatedAt     time.Time        `json:"created_at"`
	SyncStatus    store.SyncStatus `json:"sync_status"`
}

func toSaleResponse(sale *store.Sale) SaleResponse {
	return SaleResponse{
		ID:            sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		TotalAmount:   sale.TotalAmount,
		CreatedAt:     sale.CreatedAt,
		SyncStatus:    sale.SyncStatus,
	}
}
