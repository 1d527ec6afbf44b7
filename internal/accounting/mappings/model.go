package mappings

import (
	"strings"
	"time"
)

// Modules that own account mappings.
const (
	ModuleAsset   = "ASSET"
	ModulePayroll = "PAYROLL"
)

// Roles an asset category maps to a ledger account.
const (
	RoleAsset                   = "asset"
	RoleAccumulatedDepreciation = "accumulated_depreciation"
	RoleDepreciationExpense     = "depreciation_expense"
	RoleRevaluationGain         = "revaluation_gain"
	RoleRevaluationLoss         = "revaluation_loss"
)

// Payroll posting keys.
var (
	PayrollSalaryExpense     = MappingKey{Module: ModulePayroll, Key: "salary_expense"}
	PayrollDeductionsPayable = MappingKey{Module: ModulePayroll, Key: "deductions_payable"}
	PayrollSalariesPayable   = MappingKey{Module: ModulePayroll, Key: "salaries_payable"}
	PayrollCash              = MappingKey{Module: ModulePayroll, Key: "cash"}
)

// MappingKey identifies a semantic account reference.
type MappingKey struct {
	Module string
	Key    string
}

func (k MappingKey) String() string {
	return k.Module + ":" + k.Key
}

// CategoryKey builds the asset mapping key for a category role.
func CategoryKey(category, role string) MappingKey {
	return MappingKey{Module: ModuleAsset, Key: strings.ToLower(strings.TrimSpace(category)) + "." + role}
}

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
	UpdatedAt time.Time
}
