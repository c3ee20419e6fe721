package invoice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvHeader = "product_name,category,batch_number,expiry_date,quantity,cost_price,supplier_discount_percent,vat_rate,discounted_selling_price,barcode\n"

func TestParseLines(t *testing.T) {
	body := csvHeader +
		"Paracetamol 500mg,Analgesics,B-100,2027-01-31,30,100,10,16,115,PH123\n" +
		"Amoxicillin 250mg,Antibiotics,B-200,,20,50,,,,\n"

	lines, err := ParseLines(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	first := lines[0]
	assert.Equal(t, "Paracetamol 500mg", first.ProductName)
	assert.Equal(t, "B-100", first.BatchNumber)
	assert.Equal(t, int64(30), first.Quantity)
	assert.True(t, first.CostPrice.Equal(dec("100")))
	assert.True(t, first.SupplierDiscountPercent.Equal(dec("10")))
	assert.True(t, first.VATRate.Equal(dec("16")))
	assert.True(t, first.DiscountedSellingPrice.Equal(dec("115")))
	assert.Equal(t, "PH123", first.Barcode)
	assert.Equal(t, 2027, first.ExpiryDate.Year())

	second := lines[1]
	assert.True(t, second.ExpiryDate.IsZero())
	assert.True(t, second.SupplierDiscountPercent.IsZero())
	assert.Empty(t, second.Barcode)
}

func TestParseLinesRejectsWholeFileOnBadRow(t *testing.T) {
	body := csvHeader +
		"Paracetamol 500mg,Analgesics,B-100,2027-01-31,30,100,10,16,,\n" +
		"Amoxicillin 250mg,Antibiotics,B-200,,twenty,50,,,,\n"

	lines, err := ParseLines(strings.NewReader(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "line 3")
	assert.Nil(t, lines, "no partial result on a bad file")
}

func TestParseLinesHeaderValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty file", ""},
		{"wrong column", "name,category,batch_number,expiry_date,quantity,cost_price,supplier_discount_percent,vat_rate\nX,,B,,1,10,,\n"},
		{"too few columns", "product_name,category\nX,\n"},
		{"header only", csvHeader},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLines(strings.NewReader(tc.body))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestParseLinesBadDates(t *testing.T) {
	body := csvHeader + "X,,B-1,31/01/2027,5,10,,,,\n"
	_, err := ParseLines(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseLinesShortHeaderAccepted(t *testing.T) {
	body := "product_name,category,batch_number,expiry_date,quantity,cost_price,supplier_discount_percent,vat_rate\n" +
		"X,,B-1,,5,10,0,16\n"
	lines, err := ParseLines(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].VATRate.Equal(dec("16")))
}
