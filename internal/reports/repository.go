package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository answers the aggregate queries behind the dashboard and exports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	var summary SalesSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(vat_total), 0),
		       COALESCE(SUM(rounding_total), 0),
		       COALESCE(SUM(profit_total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2`, from, to,
	).Scan(&summary.Count, &summary.Total, &summary.VATTotal,
		&summary.RoundingTotal, &summary.ProfitTotal)
	return summary, err
}

func (r *Repository) InvoiceTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM invoices
		WHERE invoice_date >= $1 AND invoice_date < $2`, from, to,
	).Scan(&total)
	return total, err
}

func (r *Repository) CreditNoteTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM credit_notes
		WHERE return_date >= $1 AND return_date < $2`, from, to,
	).Scan(&total)
	return total, err
}

func (r *Repository) LowStockCount(ctx context.Context, threshold int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE current_stock <= $1`, threshold,
	).Scan(&count)
	return count, err
}

func (r *Repository) ExpiringCount(ctx context.Context, withinDays int) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE expiry_date IS NOT NULL
		  AND expiry_date <= NOW() + ($1 || ' days')::interval
		  AND current_stock > 0`, withinDays,
	).Scan(&count)
	return count, err
}

// SalesRow is one export line.
type SalesRow struct {
	SaleNumber    string
	CreatedAt     time.Time
	ProductName   string
	Quantity      int64
	UnitPrice     decimal.Decimal
	FinalPrice    decimal.Decimal
	RoundingExtra decimal.Decimal
	Profit        decimal.Decimal
	PriceType     string
	PaymentMethod string
	SoldBy        string
}

func (r *Repository) SalesRows(ctx context.Context, from, to time.Time) ([]SalesRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.sale_number, s.created_at, i.product_name, i.quantity, i.unit_price,
		       i.final_price_rounded, i.rounding_extra, i.profit, i.price_type_used,
		       s.payment_method, s.user_name
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		ORDER BY s.created_at, i.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SalesRow{}
	for rows.Next() {
		var row SalesRow
		if err := rows.Scan(&row.SaleNumber, &row.CreatedAt, &row.ProductName, &row.Quantity,
			&row.UnitPrice, &row.FinalPrice, &row.RoundingExtra, &row.Profit,
			&row.PriceType, &row.PaymentMethod, &row.SoldBy); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StockRow is one stock export line.
type StockRow struct {
	Name         string
	Category     string
	BatchNumber  string
	ExpiryDate   *time.Time
	CurrentStock int64
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
}

func (r *Repository) StockRows(ctx context.Context) ([]StockRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, category, batch_number, expiry_date, current_stock, cost_price, selling_price
		FROM products
		ORDER BY name, batch_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StockRow{}
	for rows.Next() {
		var row StockRow
		if err := rows.Scan(&row.Name, &row.Category, &row.BatchNumber, &row.ExpiryDate,
			&row.CurrentStock, &row.CostPrice, &row.SellingPrice); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
