package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists sales in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sales (sale_number, total_amount, vat_total, rounding_total, profit_total, payment_method, customer_phone, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		sale.SaleNumber, sale.TotalAmount, sale.VATTotal, sale.RoundingTotal,
		sale.ProfitTotal, string(sale.PaymentMethod), sale.CustomerPhone,
		sale.UserID, sale.UserName,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) InsertLines(ctx context.Context, saleID int64, lines []SaleLine) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(`
			INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, total_price, selling_price_ex_vat, vat_amount, final_price_rounded, rounding_extra, profit, price_type_used, actual_cost_at_sale)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			saleID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPrice, line.TotalPrice, line.SellingPriceExVat, line.VATAmount,
			line.FinalPriceRounded, line.RoundingExtra, line.Profit,
			string(line.PriceTypeUsed), line.ActualCostAtSale)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range lines {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	var method string
	err := r.pool.QueryRow(ctx, `
		SELECT id, sale_number, total_amount, vat_total, rounding_total, profit_total, payment_method, customer_phone, user_id, user_name, created_at
		FROM sales WHERE id = $1`, id,
	).Scan(&sale.ID, &sale.SaleNumber, &sale.TotalAmount, &sale.VATTotal,
		&sale.RoundingTotal, &sale.ProfitTotal, &method, &sale.CustomerPhone,
		&sale.UserID, &sale.UserName, &sale.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	sale.PaymentMethod = PaymentMethod(method)

	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, total_price, selling_price_ex_vat, vat_amount, final_price_rounded, rounding_extra, profit, price_type_used, actual_cost_at_sale
		FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return Sale{}, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	return sale, rows.Err()
}

func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argCount := 0

	if filters.Method != "" {
		argCount++
		where += " AND payment_method = $" + strconv.Itoa(argCount)
		args = append(args, string(filters.Method))
	}
	if !filters.From.IsZero() {
		argCount++
		where += " AND created_at >= $" + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		where += " AND created_at < $" + strconv.Itoa(argCount)
		args = append(args, filters.To.Add(24*time.Hour))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	perPage := filters.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, `
		SELECT id, sale_number, total_amount, vat_total, rounding_total, profit_total, payment_method, customer_phone, user_id, user_name, created_at
		FROM sales`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+strconv.Itoa(argCount+1)+` OFFSET $`+strconv.Itoa(argCount+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var sale Sale
		var method string
		if err := rows.Scan(&sale.ID, &sale.SaleNumber, &sale.TotalAmount, &sale.VATTotal,
			&sale.RoundingTotal, &sale.ProfitTotal, &method, &sale.CustomerPhone,
			&sale.UserID, &sale.UserName, &sale.CreatedAt); err != nil {
			return nil, 0, err
		}
		sale.PaymentMethod = PaymentMethod(method)
		sales = append(sales, sale)
	}
	return sales, total, rows.Err()
}

func scanLine(rows pgx.Rows) (SaleLine, error) {
	var line SaleLine
	var priceType string
	err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.ProductName,
		&line.Quantity, &line.UnitPrice, &line.TotalPrice, &line.SellingPriceExVat,
		&line.VATAmount, &line.FinalPriceRounded, &line.RoundingExtra, &line.Profit,
		&priceType, &line.ActualCostAtSale)
	if err != nil {
		return SaleLine{}, err
	}
	line.PriceTypeUsed = PriceType(priceType)
	return line, nil
}
