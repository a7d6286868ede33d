package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("ledger: 金额必须大于0")
	ErrPolicyViolation   = errors.New("ledger: 违反账户策略")
	ErrInsufficientFunds = errors.New("ledger: 余额不足")
	ErrAccountNotFound   = errors.New("ledger: 账户不存在")
	ErrInvalidTransition = errors.New("ledger: 账户状态变更不合法")
	ErrDuplicateAccount  = errors.New("ledger: 账户号已存在")
	ErrSameAccount       = errors.New("ledger: 转出与转入账户相同")
	ErrAccountClosed     = errors.New("ledger: 账户已销户")
	ErrDuplicateEntry    = errors.New("ledger: 流水号已存在")
)

// PolicyRule 触发拒绝的策略规则
type PolicyRule string

const (
	RuleMinimumBalance    PolicyRule = "MinimumBalance"
	RuleOverdraftExceeded PolicyRule = "OverdraftExceeded"
)

// PolicyError 取款（或开户）违反账户类型策略
//
// Balance 是拒绝时的当前余额，供调用方展示；Limit 是被触碰的阈值
// （储蓄户为最低余额，支票户为透支额度）。
type PolicyError struct {
	Account string
	Rule    PolicyRule
	Balance decimal.Decimal
	Amount  decimal.Decimal
	Limit   decimal.Decimal
}

func (e *PolicyError) Error() string {
	switch e.Rule {
	case RuleMinimumBalance:
		return fmt.Sprintf("ledger: 账户 %s 须保持最低余额 $%s，当前余额 $%s",
			e.Account, e.Limit.StringFixed(2), e.Balance.StringFixed(2))
	case RuleOverdraftExceeded:
		return fmt.Sprintf("ledger: 账户 %s 超出透支额度 $%s，当前余额 $%s",
			e.Account, e.Limit.StringFixed(2), e.Balance.StringFixed(2))
	default:
		return fmt.Sprintf("ledger: 账户 %s 违反策略 %s", e.Account, e.Rule)
	}
}

func (e *PolicyError) Unwrap() error {
	return ErrPolicyViolation
}

// FundsError 基础账户余额不足
type FundsError struct {
	Account   string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("ledger: 账户 %s 余额不足，当前 $%s，请求 $%s",
		e.Account, e.Balance.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *FundsError) Unwrap() error {
	return ErrInsufficientFunds
}
