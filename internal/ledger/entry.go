package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType 流水类型
type EntryType string

const (
	EntryDeposit     EntryType = "DEPOSIT"
	EntryWithdrawal  EntryType = "WITHDRAWAL"
	EntryTransferIn  EntryType = "TRANSFER_IN"
	EntryTransferOut EntryType = "TRANSFER_OUT"
)

// TimestampLayout 流水时间的展示/持久化格式（分钟精度）
const TimestampLayout = "02-01-2006 03:04 PM"

// ParseEntryType 大小写不敏感
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("ledger: 未知流水类型 %q", s)
	}
	return t, nil
}

func (t EntryType) Valid() bool {
	switch t {
	case EntryDeposit, EntryWithdrawal, EntryTransferIn, EntryTransferOut:
		return true
	}
	return false
}

// Credit 入账类流水
func (t EntryType) Credit() bool {
	return t == EntryDeposit || t == EntryTransferIn
}

// Entry 账户流水
//
// 【流水设计原则】
// 1. 只追加，不修改，不删除
// 2. Amount 永远是正数，方向由 Type 决定
// 3. BalanceAfter 是追加那一刻账户的余额
type Entry struct {
	ID           string          `json:"transaction_id"`
	Account      string          `json:"account_number"`
	Type         EntryType       `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Timestamp    time.Time       `json:"timestamp"`
	Related      string          `json:"related_account,omitempty"`
}

// NewEntry 构造一条待追加的流水（ID 由 Log 分配）
func NewEntry(account string, typ EntryType, amount, balanceAfter decimal.Decimal, related string) (Entry, error) {
	if account == "" {
		return Entry{}, fmt.Errorf("%w: 流水缺少账户号", ErrAccountNotFound)
	}
	if !typ.Valid() {
		return Entry{}, fmt.Errorf("ledger: 未知流水类型 %q", typ)
	}
	if !amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	return Entry{
		Account:      account,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Related:      related,
	}, nil
}

// Signed 带方向的金额：入账为正，出账为负
func (e Entry) Signed() decimal.Decimal {
	if e.Type.Credit() {
		return e.Amount
	}
	return e.Amount.Neg()
}

func (e Entry) FormattedTimestamp() string {
	return e.Timestamp.Format(TimestampLayout)
}
