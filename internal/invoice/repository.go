package invoice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmapos/pharmapos/internal/platform/db"
)

// Repository persists invoices in PostgreSQL. Header, product and item writes
// are deliberately independent statements: the commit workflow compensates
// for partial failure itself rather than relying on a database transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateHeader inserts the invoice header and returns its ID.
func (r *Repository) CreateHeader(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (invoice_number, supplier, invoice_date, total_amount, user_id, user_name)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		inv.InvoiceNumber, inv.Supplier, inv.InvoiceDate,
		db.DecimalToNumeric(inv.TotalAmount), inv.UserID, inv.UserName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoice: insert header: %w", err)
	}
	return id, nil
}

// DeleteHeader removes an invoice header (and, via cascade, any staged
// items). Used only by the rollback path.
func (r *Repository) DeleteHeader(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoice: delete header: %w", err)
	}
	return nil
}

// InsertItems persists all invoice lines as one batch.
func (r *Repository) InsertItems(ctx context.Context, invoiceID int64, items []Item) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO invoice_items (invoice_id, product_id, product_name, category, batch_number,
				expiry_date, quantity, cost_price, discounted_cost_price, selling_price,
				discounted_selling_price, vat, gross_profit_margin, supplier_discount_percent,
				vat_rate, total_cost, barcode)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			invoiceID, item.ProductID, item.ProductName, item.Category, item.BatchNumber,
			expiryArg(item.ExpiryDate), item.Quantity,
			db.DecimalToNumeric(item.CostPrice), db.DecimalToNumeric(item.DiscountedCostPrice),
			db.DecimalToNumeric(item.SellingPrice), db.DecimalToNumeric(item.DiscountedSellingPrice),
			db.DecimalToNumeric(item.VAT), db.DecimalToNumeric(item.GrossProfitMargin),
			db.DecimalToNumeric(item.SupplierDiscountPercent), db.DecimalToNumeric(item.VATRate),
			db.DecimalToNumeric(item.TotalCost), item.Barcode)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("invoice: insert items: %w", err)
		}
	}
	return nil
}

// Get loads one invoice and its items.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, invoice_number, supplier, invoice_date, total_amount, user_id, user_name, created_at, updated_at
		 FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, invoice_id, product_id, product_name, category, batch_number, expiry_date,
			quantity, cost_price, discounted_cost_price, selling_price, discounted_selling_price,
			vat, gross_profit_margin, supplier_discount_percent, vat_rate, total_cost, barcode
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, fmt.Errorf("invoice: load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// List returns a page of invoice headers, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	query := `SELECT id, invoice_number, supplier, invoice_date, total_amount, user_id, user_name, created_at, updated_at
		FROM invoices WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM invoices WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Supplier != "" {
		argCount++
		cond := ` AND supplier ILIKE $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Supplier+"%")
	}
	if !filters.From.IsZero() {
		argCount++
		cond := ` AND invoice_date >= $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		cond := ` AND invoice_date <= $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoice: count: %w", err)
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query += ` ORDER BY invoice_date DESC, id DESC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoice: list: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv   Invoice
		total pgtype.Numeric
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Supplier, &inv.InvoiceDate,
		&total, &inv.UserID, &inv.UserName, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, fmt.Errorf("invoice: scan: %w", err)
	}
	inv.TotalAmount = db.NumericToDecimal(total)
	return inv, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item     Item
		expiry   pgtype.Date
		cost     pgtype.Numeric
		discCost pgtype.Numeric
		selling  pgtype.Numeric
		discSell pgtype.Numeric
		vat      pgtype.Numeric
		margin   pgtype.Numeric
		discount pgtype.Numeric
		vatRate  pgtype.Numeric
		lineCost pgtype.Numeric
	)
	err := row.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductName, &item.Category,
		&item.BatchNumber, &expiry, &item.Quantity, &cost, &discCost, &selling, &discSell,
		&vat, &margin, &discount, &vatRate, &lineCost, &item.Barcode)
	if err != nil {
		return Item{}, fmt.Errorf("invoice: scan item: %w", err)
	}
	if expiry.Valid {
		item.ExpiryDate = expiry.Time
	}
	item.CostPrice = db.NumericToDecimal(cost)
	item.DiscountedCostPrice = db.NumericToDecimal(discCost)
	item.SellingPrice = db.NumericToDecimal(selling)
	item.DiscountedSellingPrice = db.NumericToDecimal(discSell)
	item.VAT = db.NumericToDecimal(vat)
	item.GrossProfitMargin = db.NumericToDecimal(margin)
	item.SupplierDiscountPercent = db.NumericToDecimal(discount)
	item.VATRate = db.NumericToDecimal(vatRate)
	item.TotalCost = db.NumericToDecimal(lineCost)
	return item, nil
}

func expiryArg(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}
