package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository resolves and maintains account mappings.
type Repository interface {
	Get(ctx context.Context, key MappingKey) (AccountMapping, error)
	Upsert(ctx context.Context, key MappingKey, accountID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL mapping repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, key MappingKey) (AccountMapping, error) {
	if key.Module == "" || key.Key == "" {
		return AccountMapping{}, errors.New("accounting: module and key required")
	}
	var mapping AccountMapping
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT module, key, account_id, updated_at FROM account_mappings WHERE module=$1 AND key=$2`,
		strings.ToUpper(key.Module), key.Key).
		Scan(&mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, shared.ErrMappingNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// Upsert points key at accountID.
func (r *repository) Upsert(ctx context.Context, key MappingKey, accountID int64) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO account_mappings (module, key, account_id, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (module, key) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()`,
		strings.ToUpper(key.Module), key.Key, accountID)
	return err
}
