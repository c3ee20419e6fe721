package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/pricing"
)

// Invoice is a supplier purchase record. Committing one increases stock for
// every line. Headers are immutable after commit.
type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	Supplier      string          `json:"supplier"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	Items         []Item          `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item is one received line of a supplier invoice with all pricing fields
// derived at build time.
type Item struct {
	ID                      int64           `json:"id"`
	InvoiceID               int64           `json:"invoice_id"`
	ProductID               int64           `json:"product_id"`
	ProductName             string          `json:"product_name"`
	Category                string          `json:"category"`
	BatchNumber             string          `json:"batch_number"`
	ExpiryDate              time.Time       `json:"expiry_date"`
	Quantity                int64           `json:"quantity"`
	CostPrice               decimal.Decimal `json:"cost_price"`
	DiscountedCostPrice     decimal.Decimal `json:"discounted_cost_price"`
	SellingPrice            decimal.Decimal `json:"selling_price"`
	DiscountedSellingPrice  decimal.Decimal `json:"discounted_selling_price"`
	VAT                     decimal.Decimal `json:"vat"`
	GrossProfitMargin       decimal.Decimal `json:"gross_profit_margin"`
	SupplierDiscountPercent decimal.Decimal `json:"supplier_discount_percent"`
	VATRate                 decimal.Decimal `json:"vat_rate"`
	TotalCost               decimal.Decimal `json:"total_cost"`
	Barcode                 string          `json:"barcode"`
}

// LineInput is the raw line as entered by the operator or parsed from CSV.
// Derived pricing fields are filled in by BuildItem so both paths agree.
type LineInput struct {
	ProductName             string
	Category                string
	BatchNumber             string
	ExpiryDate              time.Time
	Quantity                int64
	CostPrice               decimal.Decimal
	SupplierDiscountPercent decimal.Decimal
	VATRate                 decimal.Decimal
	DiscountedSellingPrice  decimal.Decimal
	Barcode                 string
}

var (
	// ErrValidation indicates the commit was rejected before any mutation.
	ErrValidation = errors.New("invoice: invalid input")
	// ErrRolledBack wraps the persistence failure after compensation ran.
	ErrRolledBack = errors.New("invoice: commit failed, changes rolled back")
	// ErrNotFound indicates a missing invoice.
	ErrNotFound = errors.New("invoice: not found")
)

// BuildItem derives the full item record from a raw line. It is the single
// place pricing is computed for invoice lines, keeping CSV import and manual
// entry in agreement.
func BuildItem(input LineInput) (Item, error) {
	if strings.TrimSpace(input.ProductName) == "" {
		return Item{}, fmt.Errorf("%w: product name required", ErrValidation)
	}
	if strings.TrimSpace(input.BatchNumber) == "" {
		return Item{}, fmt.Errorf("%w: batch number required for %s", ErrValidation, input.ProductName)
	}
	if input.Quantity <= 0 {
		return Item{}, fmt.Errorf("%w: quantity must be positive for %s", ErrValidation, input.ProductName)
	}
	quote := pricing.Compute(input.CostPrice, input.SupplierDiscountPercent, input.VATRate)
	if !quote.Computed {
		return Item{}, fmt.Errorf("%w: pricing not computed for %s (cost price must be positive)",
			ErrValidation, input.ProductName)
	}
	qty := decimal.NewFromInt(input.Quantity)
	return Item{
		ProductName:             strings.TrimSpace(input.ProductName),
		Category:                strings.TrimSpace(input.Category),
		BatchNumber:             strings.TrimSpace(input.BatchNumber),
		ExpiryDate:              input.ExpiryDate,
		Quantity:                input.Quantity,
		CostPrice:               input.CostPrice,
		DiscountedCostPrice:     quote.DiscountedCostPrice,
		SellingPrice:            quote.SellingPrice,
		DiscountedSellingPrice:  input.DiscountedSellingPrice,
		VAT:                     quote.VAT,
		GrossProfitMargin:       quote.GrossProfitMargin,
		SupplierDiscountPercent: input.SupplierDiscountPercent,
		VATRate:                 input.VATRate,
		TotalCost:               qty.Mul(quote.DiscountedCostPrice),
		Barcode:                 strings.TrimSpace(input.Barcode),
	}, nil
}
