package sales

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/pricing"
)

// MinMarginPercent is the floor rule for operator price overrides: the unit
// price must cover cost plus this margin unless a pre-approved discounted
// price is used.
var MinMarginPercent = decimal.NewFromInt(10)

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// PriceFloor is the minimum VAT-inclusive unit price an operator may enter
// for the product under the margin rule.
func PriceFloor(product catalog.Product) decimal.Decimal {
	return product.DiscountedCostPrice.
		Mul(one.Add(MinMarginPercent.Div(hundred))).
		Round(2)
}

// BuildSaleLine derives a fully-populated till line. The unit price is
// VAT-inclusive; downstream profit math works on the ex-VAT value. The price
// must clear the margin floor, except when the operator sells at the
// product's pre-approved discounted price.
func BuildSaleLine(product catalog.Product, quantity int64, unitPrice decimal.Decimal, priceType PriceType) (SaleLine, error) {
	if quantity <= 0 {
		return SaleLine{}, fmt.Errorf("%w: quantity must be positive for %s", ErrValidation, product.Name)
	}
	if !unitPrice.IsPositive() {
		return SaleLine{}, fmt.Errorf("%w: unit price must be positive for %s", ErrValidation, product.Name)
	}
	if priceType != PriceTypeSelling && priceType != PriceTypeDiscounted {
		return SaleLine{}, fmt.Errorf("%w: unknown price type %q", ErrValidation, priceType)
	}

	if !discountApproved(product, unitPrice, priceType) {
		if floor := PriceFloor(product); unitPrice.LessThan(floor) {
			return SaleLine{}, fmt.Errorf("%w: %s priced at %s, floor is %s",
				ErrBelowFloor, product.Name, unitPrice.StringFixed(2), floor.StringFixed(2))
		}
	}

	line := SaleLine{
		ProductID:        product.ID,
		ProductName:      product.Name,
		UnitPrice:        unitPrice,
		PriceTypeUsed:    priceType,
		ActualCostAtSale: product.DiscountedCostPrice,
	}
	rescale(&line, quantity, product.VATRate)
	return line, nil
}

// Rescale recomputes the totals of an existing line for a new quantity. The
// operator's unit price and price type survive the edit.
func Rescale(line SaleLine, quantity int64, vatRate decimal.Decimal) (SaleLine, error) {
	if quantity <= 0 {
		return SaleLine{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	rescale(&line, quantity, vatRate)
	return line, nil
}

func rescale(line *SaleLine, quantity int64, vatRate decimal.Decimal) {
	qty := decimal.NewFromInt(quantity)
	divisor := one.Add(vatRate.Div(hundred))

	unitExVat := line.UnitPrice.Div(divisor).Round(2)

	line.Quantity = quantity
	line.SellingPriceExVat = unitExVat
	line.TotalPrice = line.UnitPrice.Mul(qty)
	line.VATAmount = line.UnitPrice.Sub(unitExVat).Mul(qty).Round(2)
	line.FinalPriceRounded = pricing.RoundUpToFiveOrTen(line.TotalPrice)
	// The customer pays the rounded figure; the remainder is kept for
	// reconciliation, never discarded.
	line.RoundingExtra = line.FinalPriceRounded.Sub(line.TotalPrice)
	line.Profit = qty.Mul(unitExVat.Sub(line.ActualCostAtSale)).Round(2)
}

// discountApproved reports whether the floor check is bypassed: the operator
// chose the discounted price type and entered exactly the pre-approved
// discounted selling price.
func discountApproved(product catalog.Product, unitPrice decimal.Decimal, priceType PriceType) bool {
	return priceType == PriceTypeDiscounted &&
		product.DiscountedSellingPrice.IsPositive() &&
		unitPrice.Equal(product.DiscountedSellingPrice)
}
