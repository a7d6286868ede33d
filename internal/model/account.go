package model

import (
	"time"

	"github.com/shopspring/decimal"

	"corebank/internal/ledger"
)

// LedgerAccount 账户快照表
// 由快照任务按账户号 upsert，只反映最近一次快照时的状态，不参与记账
type LedgerAccount struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNumber  string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"account_number"`
	Kind           string          `gorm:"type:varchar(16);index;not null" json:"kind"`
	CustomerID     string          `gorm:"type:varchar(32);index;not null" json:"customer_id"`
	CustomerName   string          `gorm:"type:varchar(128);not null" json:"customer_name"`
	Balance        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance"`
	Status         string          `gorm:"type:varchar(16);not null" json:"status"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"interest_rate"`   // 储蓄户年利率（百分比）
	MinimumBalance decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"minimum_balance"` // 储蓄户最低余额
	OverdraftLimit decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"overdraft_limit"` // 支票户透支额度
	MonthlyFee     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"monthly_fee"`     // 支票户月费
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LedgerAccount) TableName() string {
	return "ledger_account"
}

func NewLedgerAccount(st ledger.AccountState) LedgerAccount {
	return LedgerAccount{
		AccountNumber:  st.Number,
		Kind:           string(st.Policy.Kind),
		CustomerID:     st.Owner.ID,
		CustomerName:   st.Owner.Name,
		Balance:        st.Balance,
		Status:         string(st.Status),
		InterestRate:   st.Policy.InterestRate,
		MinimumBalance: st.Policy.MinimumBalance,
		OverdraftLimit: st.Policy.OverdraftLimit,
		MonthlyFee:     st.Policy.MonthlyFee,
	}
}

// State 还原为账本账户状态
func (a LedgerAccount) State() (ledger.AccountState, error) {
	kind, err := ledger.ParseKind(a.Kind)
	if err != nil {
		return ledger.AccountState{}, err
	}
	status, err := ledger.ParseStatus(a.Status)
	if err != nil {
		return ledger.AccountState{}, err
	}

	var policy ledger.Policy
	switch kind {
	case ledger.KindSavings:
		policy = ledger.SavingsPolicy(a.InterestRate, a.MinimumBalance)
	case ledger.KindChecking:
		policy = ledger.CheckingPolicy(a.OverdraftLimit, a.MonthlyFee)
	default:
		policy = ledger.BasicPolicy()
	}

	return ledger.AccountState{
		Number:  a.AccountNumber,
		Owner:   ledger.Owner{ID: a.CustomerID, Name: a.CustomerName},
		Policy:  policy,
		Balance: a.Balance,
		Status:  status,
	}, nil
}
