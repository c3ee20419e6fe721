// Package pricing derives selling prices from supplier cost prices.
//
// The same function backs manual invoice entry and CSV import, so it must be
// deterministic: identical inputs always produce identical decimals.
package pricing

import "github.com/shopspring/decimal"

// Markup is the fixed multiplier applied to the discounted cost price to
// obtain the pre-rounding selling price. It is not configurable.
var Markup = decimal.NewFromFloat(1.33)

var (
	five    = decimal.NewFromInt(5)
	ten     = decimal.NewFromInt(10)
	hundred = decimal.NewFromInt(100)
)

// Quote carries the derived pricing fields for one cost price.
type Quote struct {
	Computed            bool            `json:"computed"`
	DiscountedCostPrice decimal.Decimal `json:"discounted_cost_price"`
	SellingPrice        decimal.Decimal `json:"selling_price"`
	VAT                 decimal.Decimal `json:"vat"`
	GrossProfitMargin   decimal.Decimal `json:"gross_profit_margin"`
}

// Compute derives the discounted cost, selling price, VAT amount and gross
// profit margin from a cost price, a supplier discount percentage and a VAT
// rate percentage.
//
// A non-positive cost price (or a discount that consumes the entire cost)
// yields a zero Quote with Computed false: pricing was not computed, the
// caller must not read the zero values as a free product.
func Compute(costPrice, supplierDiscountPercent, vatRate decimal.Decimal) Quote {
	if costPrice.Sign() <= 0 {
		return Quote{}
	}

	discountedCost := costPrice
	if supplierDiscountPercent.Sign() > 0 {
		factor := decimal.NewFromInt(1).Sub(supplierDiscountPercent.Div(hundred))
		discountedCost = costPrice.Mul(factor)
	}
	if discountedCost.Sign() <= 0 {
		return Quote{}
	}

	sellingPrice := RoundUpToFiveOrTen(discountedCost.Mul(Markup))

	vat := decimal.Zero
	if vatRate.Sign() > 0 {
		vat = sellingPrice.Mul(vatRate).Div(hundred).Round(2)
	}

	margin := sellingPrice.Sub(discountedCost).Div(discountedCost).Mul(hundred).Round(2)

	return Quote{
		Computed:            true,
		DiscountedCostPrice: discountedCost,
		SellingPrice:        sellingPrice,
		VAT:                 vat,
		GrossProfitMargin:   margin,
	}
}

// RoundUpToFiveOrTen rounds a price up so it ends in 0 or 5. The ones digit
// (including fraction) decides the target: at most 5 rounds up to the next
// multiple of 5, above 5 rounds up to the next multiple of 10. Values already
// on a multiple of 5 are left unchanged. The result is never below the input.
func RoundUpToFiveOrTen(price decimal.Decimal) decimal.Decimal {
	if price.Sign() <= 0 {
		return decimal.Zero
	}
	ones := price.Mod(ten)
	if ones.LessThanOrEqual(five) {
		return price.Div(five).Ceil().Mul(five)
	}
	return price.Div(ten).Ceil().Mul(ten)
}
