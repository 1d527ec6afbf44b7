// Package shared holds accounting sentinels. Each one wraps a member of the
// service-wide error taxonomy so HTTP and CLI callers can classify it.
package shared

import (
	"fmt"

	base "github.com/mrwhyte0520/contabi/internal/shared"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = fmt.Errorf("accounting: journal lines must balance: %w", base.ErrValidation)
	// ErrTooFewLines indicates less than two non-zero lines.
	ErrTooFewLines = fmt.Errorf("accounting: journal requires at least two lines: %w", base.ErrValidation)
	// ErrInvalidLine indicates a malformed candidate line.
	ErrInvalidLine = fmt.Errorf("accounting: invalid journal line: %w", base.ErrValidation)
	// ErrPeriodLocked indicates the fiscal period covering the entry date is closed or locked.
	ErrPeriodLocked = fmt.Errorf("accounting: period locked: %w", base.ErrValidation)
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = fmt.Errorf("accounting: journal entry not found: %w", base.ErrNotFound)
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = fmt.Errorf("accounting: account mapping not found: %w", base.ErrNotFound)
)
