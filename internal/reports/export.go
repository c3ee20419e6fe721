package reports

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// WriteSalesCSV serialises the sales export, one row per sold line. The
// rounding extra column is what reconciliation adds up against the till.
func WriteSalesCSV(w io.Writer, rows []SalesRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Sale Number", "Date", "Product", "Quantity", "Unit Price",
		"Final Price", "Rounding Extra", "Profit", "Price Type",
		"Payment Method", "Sold By",
	}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.SaleNumber,
			row.CreatedAt.Format(time.RFC3339),
			row.ProductName,
			strconv.FormatInt(row.Quantity, 10),
			row.UnitPrice.StringFixed(2),
			row.FinalPrice.StringFixed(2),
			row.RoundingExtra.StringFixed(2),
			row.Profit.StringFixed(2),
			row.PriceType,
			row.PaymentMethod,
			row.SoldBy,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteStockCSV serialises the stock report.
func WriteStockCSV(w io.Writer, rows []StockRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{
		"Product", "Category", "Batch", "Expiry", "Current Stock",
		"Cost Price", "Selling Price",
	}); err != nil {
		return err
	}
	for _, row := range rows {
		expiry := ""
		if row.ExpiryDate != nil {
			expiry = row.ExpiryDate.Format("2006-01-02")
		}
		if err := writer.Write([]string{
			row.Name,
			row.Category,
			row.BatchNumber,
			expiry,
			strconv.FormatInt(row.CurrentStock, 10),
			row.CostPrice.StringFixed(2),
			row.SellingPrice.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
