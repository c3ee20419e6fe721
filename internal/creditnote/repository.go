package creditnote

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists credit notes in Postgres. Statements are issued
// independently; the service owns the ordering semantics.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateHeader(ctx context.Context, note CreditNote) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO credit_notes (credit_note_number, supplier, return_date, total_amount, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		note.CreditNoteNumber, note.Supplier, note.ReturnDate, note.TotalAmount,
		note.UserID, note.UserName,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) InsertItem(ctx context.Context, item Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO credit_note_items (credit_note_id, product_id, product_name, batch_number, quantity, cost_price, total_credit, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.CreditNoteID, item.ProductID, item.ProductName, item.BatchNumber,
		item.Quantity, item.CostPrice, item.TotalCredit, item.Reason,
	)
	return err
}

func (r *Repository) Get(ctx context.Context, id int64) (CreditNote, error) {
	var note CreditNote
	err := r.pool.QueryRow(ctx, `
		SELECT id, credit_note_number, supplier, return_date, total_amount, user_id, user_name, created_at, updated_at
		FROM credit_notes WHERE id = $1`, id,
	).Scan(&note.ID, &note.CreditNoteNumber, &note.Supplier, &note.ReturnDate,
		&note.TotalAmount, &note.UserID, &note.UserName, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditNote{}, ErrNotFound
	}
	if err != nil {
		return CreditNote{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, credit_note_id, product_id, product_name, batch_number, quantity, cost_price, total_credit, reason
		FROM credit_note_items WHERE credit_note_id = $1 ORDER BY id`, id)
	if err != nil {
		return CreditNote{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CreditNoteID, &item.ProductID, &item.ProductName,
			&item.BatchNumber, &item.Quantity, &item.CostPrice, &item.TotalCredit, &item.Reason); err != nil {
			return CreditNote{}, err
		}
		note.Items = append(note.Items, item)
	}
	return note, rows.Err()
}

func (r *Repository) List(ctx context.Context, filters ListFilters) ([]CreditNote, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argCount := 0

	if filters.Supplier != "" {
		argCount++
		where += " AND supplier ILIKE $" + strconv.Itoa(argCount)
		args = append(args, "%"+filters.Supplier+"%")
	}
	if !filters.From.IsZero() {
		argCount++
		where += " AND return_date >= $" + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		where += " AND return_date < $" + strconv.Itoa(argCount)
		args = append(args, filters.To.Add(24*time.Hour))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM credit_notes"+where, args...).Scan(&total); err != nil {
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
		SELECT id, credit_note_number, supplier, return_date, total_amount, user_id, user_name, created_at, updated_at
		FROM credit_notes`+where+`
		ORDER BY return_date DESC, id DESC
		LIMIT $`+strconv.Itoa(argCount+1)+` OFFSET $`+strconv.Itoa(argCount+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notes := []CreditNote{}
	for rows.Next() {
		var note CreditNote
		if err := rows.Scan(&note.ID, &note.CreditNoteNumber, &note.Supplier, &note.ReturnDate,
			&note.TotalAmount, &note.UserID, &note.UserName, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, 0, err
		}
		notes = append(notes, note)
	}
	return notes, total, rows.Err()
}
