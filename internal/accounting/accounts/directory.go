package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

// AccountNotFoundError reports a semantic or literal account reference that
// does not resolve to an active ledger account.
type AccountNotFoundError struct {
	Ref string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("accounts: no active account for %s", e.Ref)
}

func (e *AccountNotFoundError) Unwrap() error { return base.ErrNotFound }

// MappingReader is the subset of the mapping repository the directory needs.
type MappingReader interface {
	Get(ctx context.Context, key mappings.MappingKey) (mappings.AccountMapping, error)
}

// Directory resolves account codes and semantic mapping keys. It is the only
// way calculators obtain ledger accounts.
type Directory struct {
	repo     Repository
	mappings MappingReader
}

// NewDirectory constructs a Directory.
func NewDirectory(repo Repository, mappings MappingReader) *Directory {
	return &Directory{repo: repo, mappings: mappings}
}

// Resolve returns the account a mapping key points at.
func (d *Directory) Resolve(ctx context.Context, key mappings.MappingKey) (Account, error) {
	m, err := d.mappings.Get(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrMappingNotFound) {
			return Account{}, &AccountNotFoundError{Ref: key.String()}
		}
		return Account{}, fmt.Errorf("accounts: resolve %s: %w", key, err)
	}
	acc, err := d.repo.Get(ctx, m.AccountID)
	return d.active(acc, err, key.String())
}

// ResolveCode returns the active account with the given code.
func (d *Directory) ResolveCode(ctx context.Context, code string) (Account, error) {
	acc, err := d.repo.GetByCode(ctx, code)
	return d.active(acc, err, code)
}

// List returns the chart of accounts.
func (d *Directory) List(ctx context.Context) ([]Account, error) {
	return d.repo.List(ctx)
}

func (d *Directory) active(acc Account, err error, ref string) (Account, error) {
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			return Account{}, &AccountNotFoundError{Ref: ref}
		}
		return Account{}, fmt.Errorf("accounts: resolve %s: %w", ref, err)
	}
	if !acc.IsActive {
		return Account{}, &AccountNotFoundError{Ref: ref}
	}
	return acc, nil
}
