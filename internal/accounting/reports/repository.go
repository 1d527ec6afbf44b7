package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository aggregates posted journal lines per account.
type Repository interface {
	Balances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed report repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Balances returns opening balances before from and movements within [from, to].
func (r *repository) Balances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
SELECT a.code, a.name, a.type,
       COALESCE(SUM(CASE WHEN e.date < $1 THEN l.debit - l.credit END), 0) AS opening,
       COALESCE(SUM(CASE WHEN e.date >= $1 THEN l.debit END), 0) AS debit,
       COALESCE(SUM(CASE WHEN e.date >= $1 THEN l.credit END), 0) AS credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id AND e.status = 'posted'
JOIN accounts a ON a.id = l.account_id
WHERE e.date <= $2
GROUP BY a.code, a.name, a.type
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
