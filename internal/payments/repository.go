package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists payments in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (reference, sale_id, phone, amount, status, gateway_ref, note, initiated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		p.Reference, p.SaleID, p.Phone, p.Amount, string(p.Status),
		p.GatewayRef, p.Note, p.InitiatedAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const paymentColumns = `id, reference, sale_id, phone, amount, status, gateway_ref, note, initiated_at, resolved_at`

func (r *Repository) Get(ctx context.Context, id int64) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	return scanPayment(row)
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, note string, resolvedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $2, note = $3, resolved_at = $4 WHERE id = $1`,
		id, string(status), note, resolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListPending(ctx context.Context) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE status = $1 ORDER BY initiated_at`,
		string(StatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var status string
	err := row.Scan(&p.ID, &p.Reference, &p.SaleID, &p.Phone, &p.Amount,
		&status, &p.GatewayRef, &p.Note, &p.InitiatedAt, &p.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	if err != nil {
		return Payment{}, err
	}
	p.Status = Status(status)
	return p, nil
}
