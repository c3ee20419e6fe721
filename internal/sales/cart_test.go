package sales

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmapos/pharmapos/internal/catalog"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct() catalog.Product {
	return catalog.Product{
		ID:                     1,
		Name:                   "Paracetamol 500mg",
		BatchNumber:            "B-100",
		CurrentStock:           50,
		CostPrice:              dec("100"),
		DiscountedCostPrice:    dec("90"),
		SellingPrice:           dec("120"),
		DiscountedSellingPrice: dec("110"),
		VATRate:                dec("16"),
	}
}

func TestBuildSaleLineDerivesAllFields(t *testing.T) {
	line, err := BuildSaleLine(testProduct(), 3, dec("120"), PriceTypeSelling)
	require.NoError(t, err)
	require.NoError(t, line.Complete())

	assert.Equal(t, int64(3), line.Quantity)
	assert.True(t, line.UnitPrice.Equal(dec("120")))
	assert.True(t, line.TotalPrice.Equal(dec("360")))
	// 120 / 1.16 = 103.45 ex VAT
	assert.True(t, line.SellingPriceExVat.Equal(dec("103.45")), "ex-VAT %s", line.SellingPriceExVat)
	// (120 - 103.45) * 3
	assert.True(t, line.VATAmount.Equal(dec("49.65")), "vat %s", line.VATAmount)
	// 360 mod 10 = 0, already a multiple of 5
	assert.True(t, line.FinalPriceRounded.Equal(dec("360")))
	assert.True(t, line.RoundingExtra.IsZero())
	// 3 * (103.45 - 90)
	assert.True(t, line.Profit.Equal(dec("40.35")), "profit %s", line.Profit)
	assert.True(t, line.ActualCostAtSale.Equal(dec("90")))
	assert.Equal(t, PriceTypeSelling, line.PriceTypeUsed)
}

func TestBuildSaleLineRoundingExtraRetained(t *testing.T) {
	product := testProduct()
	line, err := BuildSaleLine(product, 1, dec("117.30"), PriceTypeSelling)
	require.NoError(t, err)

	// 117.30 mod 10 = 7.30 > 5, round up to 120.
	assert.True(t, line.FinalPriceRounded.Equal(dec("120")), "rounded %s", line.FinalPriceRounded)
	assert.True(t, line.RoundingExtra.Equal(dec("2.70")), "extra %s", line.RoundingExtra)
	assert.True(t, line.FinalPriceRounded.Sub(line.RoundingExtra).Equal(line.TotalPrice),
		"rounded minus extra reconstructs the raw total")
}

func TestBuildSaleLineFloor(t *testing.T) {
	product := testProduct()
	// Floor is 90 * 1.10 = 99.
	assert.True(t, PriceFloor(product).Equal(dec("99")))

	_, err := BuildSaleLine(product, 1, dec("98.99"), PriceTypeSelling)
	assert.ErrorIs(t, err, ErrBelowFloor)

	line, err := BuildSaleLine(product, 1, dec("99"), PriceTypeSelling)
	require.NoError(t, err)
	assert.True(t, line.UnitPrice.Equal(dec("99")))
}

func TestBuildSaleLineDiscountBypassesFloor(t *testing.T) {
	product := testProduct()
	product.DiscountedSellingPrice = dec("95") // below the 99 floor, pre-approved

	line, err := BuildSaleLine(product, 2, dec("95"), PriceTypeDiscounted)
	require.NoError(t, err)
	assert.Equal(t, PriceTypeDiscounted, line.PriceTypeUsed)

	// The bypass only covers the exact pre-approved price.
	_, err = BuildSaleLine(product, 2, dec("94"), PriceTypeDiscounted)
	assert.ErrorIs(t, err, ErrBelowFloor)

	// The selling price type never bypasses.
	_, err = BuildSaleLine(product, 2, dec("95"), PriceTypeSelling)
	assert.ErrorIs(t, err, ErrBelowFloor)
}

func TestBuildSaleLineNoDiscountConfigured(t *testing.T) {
	product := testProduct()
	product.DiscountedSellingPrice = decimal.Zero

	_, err := BuildSaleLine(product, 1, dec("50"), PriceTypeDiscounted)
	assert.ErrorIs(t, err, ErrBelowFloor, "no pre-approved price means no bypass")
}

func TestRescalePreservesOverride(t *testing.T) {
	product := testProduct()
	line, err := BuildSaleLine(product, 2, dec("110"), PriceTypeDiscounted)
	require.NoError(t, err)

	rescaled, err := Rescale(line, 5, product.VATRate)
	require.NoError(t, err)

	assert.True(t, rescaled.UnitPrice.Equal(dec("110")), "operator price survives quantity edit")
	assert.Equal(t, PriceTypeDiscounted, rescaled.PriceTypeUsed)
	assert.Equal(t, int64(5), rescaled.Quantity)
	assert.True(t, rescaled.TotalPrice.Equal(dec("550")))
	assert.NoError(t, rescaled.Complete())

	_, err = Rescale(line, 0, product.VATRate)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildSaleLineZeroVAT(t *testing.T) {
	product := testProduct()
	product.VATRate = decimal.Zero

	line, err := BuildSaleLine(product, 1, dec("120"), PriceTypeSelling)
	require.NoError(t, err)
	assert.True(t, line.SellingPriceExVat.Equal(dec("120")))
	assert.True(t, line.VATAmount.IsZero())
	assert.True(t, line.Profit.Equal(dec("30")))
}

func TestBuildSaleLineValidation(t *testing.T) {
	product := testProduct()

	_, err := BuildSaleLine(product, 0, dec("120"), PriceTypeSelling)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = BuildSaleLine(product, 1, decimal.Zero, PriceTypeSelling)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = BuildSaleLine(product, 1, dec("120"), PriceType("WHOLESALE"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCompleteRejectsMissingFields(t *testing.T) {
	line, err := BuildSaleLine(testProduct(), 1, dec("120"), PriceTypeSelling)
	require.NoError(t, err)
	require.NoError(t, line.Complete())

	broken := line
	broken.SellingPriceExVat = decimal.Zero
	assert.ErrorIs(t, broken.Complete(), ErrIncompleteLine)

	broken = line
	broken.PriceTypeUsed = ""
	assert.ErrorIs(t, broken.Complete(), ErrIncompleteLine)

	broken = line
	broken.FinalPriceRounded = dec("1")
	assert.ErrorIs(t, broken.Complete(), ErrIncompleteLine)
}
