package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository reads the chart of accounts.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
}

// ErrNoAccount is returned by repositories when no row matches.
var ErrNoAccount = errors.New("accounts: no such account")

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed account repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectAccount = `SELECT id, code, name, type, COALESCE(normal_side, ''), is_active, created_at FROM accounts`

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectAccount+` ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	return r.one(ctx, selectAccount+` WHERE id=$1`, id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	return r.one(ctx, selectAccount+` WHERE code=$1`, code)
}

func (r *repository) one(ctx context.Context, sql string, arg any) (Account, error) {
	a, err := scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNoAccount
	}
	return a, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var side string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &side, &a.IsActive, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	a.NormalSide = NormalSide(side)
	if a.NormalSide == "" {
		a.NormalSide = a.Type.DefaultSide()
	}
	return a, nil
}
