package model

import (
	"time"

	"github.com/shopspring/decimal"

	"corebank/internal/ledger"
)

// ============================================================================
// 账户流水快照
// ============================================================================

// LedgerTransaction 流水快照表
//
// 【重要】与内存流水日志一致：
// 1. 只插入，不更新，不删除；按流水号去重
// 2. Amount 永远为正，方向由 Type 决定
// 3. 记录变动后余额，便于校验余额一致性
type LedgerTransaction struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo  string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"transaction_no"` // 流水号 TXN001...
	AccountNumber  string          `gorm:"type:varchar(32);index;not null" json:"account_number"`
	Type           string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	RelatedAccount string          `gorm:"type:varchar(32)" json:"related_account"` // 转账对方账户
	OccurredAt     time.Time       `gorm:"index;not null" json:"occurred_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LedgerTransaction) TableName() string {
	return "ledger_transaction"
}

func NewLedgerTransaction(e ledger.Entry) LedgerTransaction {
	return LedgerTransaction{
		TransactionNo:  e.ID,
		AccountNumber:  e.Account,
		Type:           string(e.Type),
		Amount:         e.Amount,
		BalanceAfter:   e.BalanceAfter,
		RelatedAccount: e.Related,
		OccurredAt:     e.Timestamp,
	}
}

func (t LedgerTransaction) Entry() (ledger.Entry, error) {
	typ, err := ledger.ParseEntryType(t.Type)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		ID:           t.TransactionNo,
		Account:      t.AccountNumber,
		Type:         typ,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Timestamp:    t.OccurredAt,
		Related:      t.RelatedAccount,
	}, nil
}
