package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmapos/pharmapos/internal/platform/db"
)

const productColumns = `id, name, category, batch_number, expiry_date, current_stock,
	cost_price, discounted_cost_price, selling_price, discounted_selling_price,
	vat_rate, barcode, created_at, updated_at`

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads one product by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// FindByNameBatch looks a product up by its commercial identity.
func (r *Repository) FindByNameBatch(ctx context.Context, name, batchNumber string) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE name = $1 AND batch_number = $2`,
		name, batchNumber)
	return scanProduct(row)
}

// Create inserts a product and returns it with its assigned ID.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, category, batch_number, expiry_date, current_stock,
			cost_price, discounted_cost_price, selling_price, discounted_selling_price,
			vat_rate, barcode)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Category, p.BatchNumber, expiryArg(p.ExpiryDate), p.CurrentStock,
		db.DecimalToNumeric(p.CostPrice), db.DecimalToNumeric(p.DiscountedCostPrice),
		db.DecimalToNumeric(p.SellingPrice), db.DecimalToNumeric(p.DiscountedSellingPrice),
		db.DecimalToNumeric(p.VATRate), p.Barcode,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicate
		}
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	return p, nil
}

// Update overwrites the mutable columns of a product.
func (r *Repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, category = $3, batch_number = $4, expiry_date = $5,
			cost_price = $6, discounted_cost_price = $7, selling_price = $8,
			discounted_selling_price = $9, vat_rate = $10, barcode = $11, updated_at = NOW()
		 WHERE id = $1`,
		id, p.Name, p.Category, p.BatchNumber, expiryArg(p.ExpiryDate),
		db.DecimalToNumeric(p.CostPrice), db.DecimalToNumeric(p.DiscountedCostPrice),
		db.DecimalToNumeric(p.SellingPrice), db.DecimalToNumeric(p.DiscountedSellingPrice),
		db.DecimalToNumeric(p.VATRate), p.Barcode)
	if err != nil {
		return fmt.Errorf("catalog: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementStock adds delta to current stock and overwrites the pricing
// columns in the same statement (last-invoice-wins).
func (r *Repository) IncrementStock(ctx context.Context, id int64, delta int64, fields PricingFields) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET current_stock = current_stock + $2, category = $3, expiry_date = $4,
			cost_price = $5, discounted_cost_price = $6, selling_price = $7,
			discounted_selling_price = $8, vat_rate = $9, updated_at = NOW()
		 WHERE id = $1`,
		id, delta, fields.Category, expiryArg(fields.ExpiryDate),
		db.DecimalToNumeric(fields.CostPrice), db.DecimalToNumeric(fields.DiscountedCostPrice),
		db.DecimalToNumeric(fields.SellingPrice), db.DecimalToNumeric(fields.DiscountedSellingPrice),
		db.DecimalToNumeric(fields.VATRate))
	if err != nil {
		return fmt.Errorf("catalog: increment stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock subtracts qty from current stock, failing when the result
// would be negative. The guard lives in the statement so racing writers
// cannot push a row below zero.
func (r *Repository) DecrementStock(ctx context.Context, id int64, qty int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET current_stock = current_stock - $2, updated_at = NOW()
		 WHERE id = $1 AND current_stock >= $2`,
		id, qty)
	if err != nil {
		return fmt.Errorf("catalog: decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// SetStock overwrites current stock with an absolute value. Used by the
// invoice rollback path to restore a recorded pre-mutation value.
func (r *Repository) SetStock(ctx context.Context, id int64, stock int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`,
		id, stock)
	if err != nil {
		return fmt.Errorf("catalog: set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a filtered page of products plus the unfiltered-page total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		cond := ` AND (name ILIKE $` + strconv.Itoa(argCount+1) + ` OR barcode = $` + strconv.Itoa(argCount+2) + `)`
		query += cond
		countQuery += cond
		args = append(args, "%"+filters.Search+"%", filters.Search)
		argCount += 2
	}
	if filters.Category != "" {
		argCount++
		cond := ` AND category = $` + strconv.Itoa(argCount)
		query += cond
		countQuery += cond
		args = append(args, filters.Category)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	query += ` ORDER BY name, batch_number`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, perPage)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// LowStock returns products at or below the threshold, lowest first.
func (r *Repository) LowStock(ctx context.Context, threshold int64, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE current_stock <= $1
		 ORDER BY current_stock, name LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: low stock: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Expiring returns products whose batch expires on or before the cutoff.
func (r *Repository) Expiring(ctx context.Context, cutoff time.Time, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE expiry_date IS NOT NULL AND expiry_date <= $1
		 ORDER BY expiry_date, name LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: expiring: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p        Product
		expiry   pgtype.Date
		cost     pgtype.Numeric
		discCost pgtype.Numeric
		selling  pgtype.Numeric
		discSell pgtype.Numeric
		vatRate  pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.BatchNumber, &expiry, &p.CurrentStock,
		&cost, &discCost, &selling, &discSell, &vatRate, &p.Barcode, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: scan product: %w", err)
	}
	if expiry.Valid {
		p.ExpiryDate = expiry.Time
	}
	p.CostPrice = db.NumericToDecimal(cost)
	p.DiscountedCostPrice = db.NumericToDecimal(discCost)
	p.SellingPrice = db.NumericToDecimal(selling)
	p.DiscountedSellingPrice = db.NumericToDecimal(discSell)
	p.VATRate = db.NumericToDecimal(vatRate)
	return p, nil
}

func expiryArg(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}
