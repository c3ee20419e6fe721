package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceType says which catalog price the operator sold at.
type PriceType string

const (
	PriceTypeSelling    PriceType = "SELLING"
	PriceTypeDiscounted PriceType = "DISCOUNTED"
)

// PaymentMethod is how the customer settled the sale.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
)

// Sale is one till transaction. TotalAmount is the sum of line
// FinalPriceRounded values, fixed at checkout.
type Sale struct {
	ID            int64           `json:"id"`
	SaleNumber    string          `json:"sale_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	VATTotal      decimal.Decimal `json:"vat_total"`
	RoundingTotal decimal.Decimal `json:"rounding_total"`
	ProfitTotal   decimal.Decimal `json:"profit_total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	UserID        int64           `json:"user_id"`
	UserName      string          `json:"user_name"`
	Lines         []SaleLine      `json:"lines,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaleLine is a committed till line. Every derived field is populated at
// build time; checkout re-verifies population and refuses incomplete lines
// instead of defaulting them.
type SaleLine struct {
	ID                int64           `json:"id"`
	SaleID            int64           `json:"sale_id"`
	ProductID         int64           `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int64           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SellingPriceExVat decimal.Decimal `json:"selling_price_ex_vat"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	FinalPriceRounded decimal.Decimal `json:"final_price_rounded"`
	RoundingExtra     decimal.Decimal `json:"rounding_extra"`
	Profit            decimal.Decimal `json:"profit"`
	PriceTypeUsed     PriceType       `json:"price_type_used"`
	ActualCostAtSale  decimal.Decimal `json:"actual_cost_at_sale"`
}

var (
	// ErrValidation indicates the checkout was rejected before any mutation.
	ErrValidation = errors.New("sales: invalid input")
	// ErrBelowFloor indicates an operator price under the minimum margin.
	ErrBelowFloor = errors.New("sales: unit price below minimum selling price")
	// ErrIncompleteLine indicates a line with a missing derived field. This
	// is fatal, never defaulted.
	ErrIncompleteLine = errors.New("sales: sale line missing derived fields")
	// ErrNotFound indicates a missing sale.
	ErrNotFound = errors.New("sales: not found")
	// ErrPaymentInit indicates the sale persisted but the mobile money
	// request could not be started.
	ErrPaymentInit = errors.New("sales: payment initiation failed")
)

// Complete verifies every derived field a committed line must carry.
func (l SaleLine) Complete() error {
	switch {
	case l.ProductID <= 0:
		return fmt.Errorf("%w: product id", ErrIncompleteLine)
	case l.ProductName == "":
		return fmt.Errorf("%w: product name", ErrIncompleteLine)
	case l.Quantity <= 0:
		return fmt.Errorf("%w: quantity", ErrIncompleteLine)
	case !l.UnitPrice.IsPositive():
		return fmt.Errorf("%w: unit price", ErrIncompleteLine)
	case !l.TotalPrice.IsPositive():
		return fmt.Errorf("%w: total price", ErrIncompleteLine)
	case !l.SellingPriceExVat.IsPositive():
		return fmt.Errorf("%w: ex-VAT price", ErrIncompleteLine)
	case l.FinalPriceRounded.LessThan(l.TotalPrice):
		return fmt.Errorf("%w: rounded price below total", ErrIncompleteLine)
	case l.PriceTypeUsed != PriceTypeSelling && l.PriceTypeUsed != PriceTypeDiscounted:
		return fmt.Errorf("%w: price type", ErrIncompleteLine)
	case l.ActualCostAtSale.IsNegative():
		return fmt.Errorf("%w: cost at sale", ErrIncompleteLine)
	}
	return nil
}
