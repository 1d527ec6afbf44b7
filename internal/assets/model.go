// Package assets holds the fixed asset register that depreciation and
// revaluation mutate.
package assets

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Method enumerates depreciation methods. Only straight line is supported.
type Method string

const MethodStraightLine Method = "straight_line"

// Status enumerates register states.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisposed Status = "disposed"
)

// ErrAssetNotFound indicates a missing asset.
var ErrAssetNotFound = fmt.Errorf("assets: asset not found: %w", shared.ErrNotFound)

// ErrDepreciationExceeded indicates an update would push accumulated
// depreciation past the depreciable base.
var ErrDepreciationExceeded = errors.New("assets: accumulated depreciation would exceed depreciable base")

// Asset is a fixed asset register row.
type Asset struct {
	ID                      int64           `json:"id"`
	Code                    string          `json:"code"`
	Name                    string          `json:"name"`
	Category                string          `json:"category"`
	AcquisitionCost         decimal.Decimal `json:"acquisition_cost"`
	CurrentValue            decimal.Decimal `json:"current_value"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	UsefulLifeMonths        int             `json:"useful_life_months"`
	SalvageValue            decimal.Decimal `json:"salvage_value"`
	Method                  Method          `json:"method"`
	AcquiredOn              time.Time       `json:"acquired_on"`
	Status                  Status          `json:"status"`
}

// DepreciableBase is acquisition cost minus salvage value.
func (a Asset) DepreciableBase() decimal.Decimal {
	return a.AcquisitionCost.Sub(a.SalvageValue)
}

// RemainingDepreciable is what may still be depreciated.
func (a Asset) RemainingDepreciable() decimal.Decimal {
	r := a.DepreciableBase().Sub(a.AccumulatedDepreciation)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// FullyDepreciated reports whether nothing remains to depreciate.
func (a Asset) FullyDepreciated() bool {
	return !a.RemainingDepreciable().IsPositive()
}
