package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

type Repository interface {
	Create(ctx context.Context, q Quote) (Quote, error)
	Get(ctx context.Context, id int64) (Quote, error)
	List(ctx context.Context, req ListQuotesRequest) ([]Quote, error)
	UpdateStatus(ctx context.Context, id int64, from, to QuoteStatus, invoiceRef string) (Quote, error)
	ExpireBefore(ctx context.Context, day time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const quoteColumns = `id, number, customer, total, valid_until, status, invoice_ref, updated_at`

func (r *repository) Create(ctx context.Context, q Quote) (Quote, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO quotes (number, customer, total, valid_until, status)
VALUES ($1, $2, $3, $4, $5) RETURNING `+quoteColumns,
		q.Number, q.Customer, q.Total.StringFixed(2), q.ValidUntil, string(q.Status))
	created, err := scanQuote(row)
	if db.IsUniqueViolation(err) {
		return Quote{}, fmt.Errorf("quotations: number %s already used: %w", q.Number, shared.ErrConflict)
	}
	return created, err
}

func (r *repository) Get(ctx context.Context, id int64) (Quote, error) {
	q, err := scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, ErrQuoteNotFound
	}
	return q, err
}

func (r *repository) List(ctx context.Context, req ListQuotesRequest) ([]Quote, error) {
	page := req.Page.Normalize()
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+quoteColumns+` FROM quotes
WHERE ($1 = '' OR status = $1) ORDER BY id DESC LIMIT $2 OFFSET $3`, string(req.Status), page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateStatus moves the quote only if it is still in from.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to QuoteStatus, invoiceRef string) (Quote, error) {
	q, err := scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE quotes
SET status=$3, invoice_ref = CASE WHEN $4 = '' THEN invoice_ref ELSE $4 END, updated_at=NOW()
WHERE id=$1 AND status=$2 RETURNING `+quoteColumns, id, string(from), string(to), invoiceRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, fmt.Errorf("quotations: quote %d is no longer %s: %w", id, from, shared.ErrConflict)
	}
	return q, err
}

// ExpireBefore expires open quotes whose validity ended before day.
func (r *repository) ExpireBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE quotes SET status='expired', updated_at=NOW()
WHERE status IN ('pending','under_review') AND valid_until < $1`, day)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	err := row.Scan(&q.ID, &q.Number, &q.Customer, &q.Total, &q.ValidUntil, &q.Status, &q.InvoiceRef, &q.UpdatedAt)
	return q, err
}
