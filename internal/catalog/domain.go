package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Product models one pharmacy stock item, identified commercially by its
// (name, batch number) pair. Products are never hard-deleted; stock may
// reach zero but not go below it.
type Product struct {
	ID                     int64           `json:"id"`
	Name                   string          `json:"name"`
	Category               string          `json:"category"`
	BatchNumber            string          `json:"batch_number"`
	ExpiryDate             time.Time       `json:"expiry_date"`
	CurrentStock           int64           `json:"current_stock"`
	CostPrice              decimal.Decimal `json:"cost_price"`
	DiscountedCostPrice    decimal.Decimal `json:"discounted_cost_price"`
	SellingPrice           decimal.Decimal `json:"selling_price"`
	DiscountedSellingPrice decimal.Decimal `json:"discounted_selling_price"`
	VATRate                decimal.Decimal `json:"vat_rate"`
	Barcode                string          `json:"barcode"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// HasVAT reports whether the product carries VAT.
func (p Product) HasVAT() bool {
	return p.VATRate.Sign() > 0
}

// PricingFields groups the price columns overwritten by an invoice line.
type PricingFields struct {
	CostPrice              decimal.Decimal
	DiscountedCostPrice    decimal.Decimal
	SellingPrice           decimal.Decimal
	DiscountedSellingPrice decimal.Decimal
	VATRate                decimal.Decimal
	Category               string
	ExpiryDate             time.Time
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search   string
	Category string
	Page     int
	PerPage  int
}

var (
	// ErrNotFound indicates a missing product row.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrInsufficientStock is returned when a decrement would drive stock negative.
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	// ErrValidation indicates invalid product input.
	ErrValidation = errors.New("catalog: invalid input")
	// ErrDuplicate is returned when (name, batch_number) already exists.
	ErrDuplicate = errors.New("catalog: product already exists for this batch")
)
