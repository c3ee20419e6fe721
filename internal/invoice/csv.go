package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// csvColumns is the required header row, in order. The optional trailing
// columns may be omitted file-wide but not per row.
var csvColumns = []string{
	"product_name", "category", "batch_number", "expiry_date", "quantity",
	"cost_price", "supplier_discount_percent", "vat_rate",
	"discounted_selling_price", "barcode",
}

const csvRequiredColumns = 8

// ParseLines reads tabular invoice lines. The whole file is rejected on the
// first malformed row so a partially-bad import can never reach the commit
// workflow; errors name the offending line.
func ParseLines(r io.Reader) ([]LineInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: missing header row", ErrValidation)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var lines []LineInput
	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrValidation, lineNo, err)
		}
		line, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrValidation, lineNo, err)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrValidation)
	}
	return lines, nil
}

func validateHeader(header []string) error {
	if len(header) < csvRequiredColumns || len(header) > len(csvColumns) {
		return fmt.Errorf("%w: expected %d-%d columns, got %d",
			ErrValidation, csvRequiredColumns, len(csvColumns), len(header))
	}
	for i, name := range header {
		if strings.TrimSpace(strings.ToLower(name)) != csvColumns[i] {
			return fmt.Errorf("%w: column %d must be %q", ErrValidation, i+1, csvColumns[i])
		}
	}
	return nil
}

func parseRecord(record []string) (LineInput, error) {
	get := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	qty, err := strconv.ParseInt(get(4), 10, 64)
	if err != nil {
		return LineInput{}, fmt.Errorf("quantity %q is not an integer", get(4))
	}

	line := LineInput{
		ProductName: get(0),
		Category:    get(1),
		BatchNumber: get(2),
		Quantity:    qty,
		Barcode:     get(9),
	}

	if raw := get(3); raw != "" {
		expiry, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return LineInput{}, fmt.Errorf("expiry date %q must be YYYY-MM-DD", raw)
		}
		line.ExpiryDate = expiry
	}

	if line.CostPrice, err = parseCSVDecimal(get(5), "cost_price"); err != nil {
		return LineInput{}, err
	}
	if line.SupplierDiscountPercent, err = parseCSVDecimal(get(6), "supplier_discount_percent"); err != nil {
		return LineInput{}, err
	}
	if line.VATRate, err = parseCSVDecimal(get(7), "vat_rate"); err != nil {
		return LineInput{}, err
	}
	if line.DiscountedSellingPrice, err = parseCSVDecimal(get(8), "discounted_selling_price"); err != nil {
		return LineInput{}, err
	}
	return line, nil
}

func parseCSVDecimal(value, column string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s %q is not a number", column, value)
	}
	return d, nil
}
