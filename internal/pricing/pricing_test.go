package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeWithSupplierDiscount(t *testing.T) {
	q := Compute(dec("100"), dec("10"), dec("16"))

	require.True(t, q.Computed)
	require.True(t, q.DiscountedCostPrice.Equal(dec("90")), "discounted cost = %s", q.DiscountedCostPrice)
	// 90 * 1.33 = 119.7, ones digit 9.7 > 5, rounds up to 120.
	require.True(t, q.SellingPrice.Equal(dec("120")), "selling price = %s", q.SellingPrice)
	require.True(t, q.VAT.Equal(dec("19.20")), "vat = %s", q.VAT)
	require.True(t, q.GrossProfitMargin.Equal(dec("33.33")), "margin = %s", q.GrossProfitMargin)
}

func TestComputeWithoutDiscountOrVAT(t *testing.T) {
	q := Compute(dec("50"), decimal.Zero, decimal.Zero)

	require.True(t, q.Computed)
	require.True(t, q.DiscountedCostPrice.Equal(dec("50")))
	// 50 * 1.33 = 66.5, ones digit 6.5 > 5, rounds up to 70.
	require.True(t, q.SellingPrice.Equal(dec("70")), "selling price = %s", q.SellingPrice)
	require.True(t, q.VAT.IsZero())
	require.True(t, q.GrossProfitMargin.Equal(dec("40")), "margin = %s", q.GrossProfitMargin)
}

func TestComputeNotComputedOnNonPositiveCost(t *testing.T) {
	for _, cost := range []decimal.Decimal{decimal.Zero, dec("-10")} {
		q := Compute(cost, dec("10"), dec("16"))
		require.False(t, q.Computed)
		require.True(t, q.SellingPrice.IsZero())
		require.True(t, q.DiscountedCostPrice.IsZero())
	}
	// A discount of 100% leaves no cost basis either.
	q := Compute(dec("80"), dec("100"), dec("16"))
	require.False(t, q.Computed)
}

func TestComputeInvariants(t *testing.T) {
	costs := []string{"0.5", "1", "3.37", "12", "49.99", "50", "87.2", "100", "119", "250.75", "999"}
	discounts := []string{"0", "2.5", "10", "33", "75", "99"}

	for _, c := range costs {
		for _, d := range discounts {
			q := Compute(dec(c), dec(d), dec("16"))
			require.True(t, q.Computed)
			require.True(t, q.DiscountedCostPrice.LessThanOrEqual(dec(c)),
				"cost=%s discount=%s: discounted cost above cost", c, d)
			require.True(t, q.SellingPrice.Mod(dec("5")).IsZero(),
				"cost=%s discount=%s: selling price %s not a multiple of 5", c, d, q.SellingPrice)
			require.True(t, q.SellingPrice.GreaterThanOrEqual(q.DiscountedCostPrice.Mul(Markup)),
				"cost=%s discount=%s: rounding went down", c, d)

			recomputed := q.SellingPrice.Sub(q.DiscountedCostPrice).
				Div(q.DiscountedCostPrice).Mul(dec("100")).Round(2)
			require.True(t, recomputed.Equal(q.GrossProfitMargin),
				"cost=%s discount=%s: margin drift", c, d)
		}
	}
}

func TestComputeMonotonicInCost(t *testing.T) {
	prev := decimal.Zero
	for cents := int64(50); cents <= 20000; cents += 37 {
		cost := decimal.New(cents, -2)
		q := Compute(cost, decimal.Zero, dec("16"))
		require.True(t, q.SellingPrice.GreaterThanOrEqual(prev),
			"cost=%s: selling price decreased from %s to %s", cost, prev, q.SellingPrice)
		prev = q.SellingPrice
	}
}

func TestComputeDeterministic(t *testing.T) {
	a := Compute(dec("123.45"), dec("7.5"), dec("16"))
	b := Compute(dec("123.45"), dec("7.5"), dec("16"))
	require.Equal(t, a.SellingPrice.String(), b.SellingPrice.String())
	require.Equal(t, a.DiscountedCostPrice.String(), b.DiscountedCostPrice.String())
	require.Equal(t, a.VAT.String(), b.VAT.String())
	require.Equal(t, a.GrossProfitMargin.String(), b.GrossProfitMargin.String())
}

func TestRoundUpToFiveOrTen(t *testing.T) {
	cases := map[string]string{
		"119.7": "120",
		"66.5":  "70",
		"112.3": "115",
		"115":   "115",
		"120":   "120",
		"64":    "65",
		"65.1":  "70",
		"0.01":  "5",
	}
	for in, want := range cases {
		got := RoundUpToFiveOrTen(dec(in))
		require.True(t, got.Equal(dec(want)), "round(%s) = %s, want %s", in, got, want)
	}
}
