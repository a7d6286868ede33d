package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind 账户类型，即策略变体的标签
type Kind string

const (
	KindSavings  Kind = "Savings"
	KindChecking Kind = "Checking"
	KindBasic    Kind = "Basic"
)

// ParseKind 大小写不敏感地解析账户类型
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "savings":
		return KindSavings, nil
	case "checking":
		return KindChecking, nil
	case "basic":
		return KindBasic, nil
	}
	return "", fmt.Errorf("ledger: 未知账户类型 %q", s)
}

// Policy 账户策略（带标签的变体）
//
// 只有与 Kind 对应的参数有意义：
//   - Savings:  InterestRate（百分比）、MinimumBalance
//   - Checking: OverdraftLimit、MonthlyFee
//   - Basic:    无参数，余额不能为负
type Policy struct {
	Kind           Kind            `json:"kind"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
}

func SavingsPolicy(interestRate, minimumBalance decimal.Decimal) Policy {
	return Policy{Kind: KindSavings, InterestRate: interestRate, MinimumBalance: minimumBalance}
}

func CheckingPolicy(overdraftLimit, monthlyFee decimal.Decimal) Policy {
	return Policy{Kind: KindChecking, OverdraftLimit: overdraftLimit, MonthlyFee: monthlyFee}
}

func BasicPolicy() Policy {
	return Policy{Kind: KindBasic}
}

// Floor 该策略允许的最低余额
func (p Policy) Floor() decimal.Decimal {
	switch p.Kind {
	case KindSavings:
		return p.MinimumBalance
	case KindChecking:
		return p.OverdraftLimit.Neg()
	default:
		return decimal.Zero
	}
}

// checkWithdraw 纯策略校验，不修改任何状态
func (p Policy) checkWithdraw(number string, balance, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	switch p.Kind {
	case KindSavings:
		if balance.Sub(amount).LessThan(p.MinimumBalance) {
			return &PolicyError{Account: number, Rule: RuleMinimumBalance, Balance: balance, Amount: amount, Limit: p.MinimumBalance}
		}
	case KindChecking:
		if amount.GreaterThan(balance.Add(p.OverdraftLimit)) {
			return &PolicyError{Account: number, Rule: RuleOverdraftExceeded, Balance: balance, Amount: amount, Limit: p.OverdraftLimit}
		}
	default:
		if amount.GreaterThan(balance) {
			return &FundsError{Account: number, Balance: balance, Requested: amount}
		}
	}
	return nil
}

// checkOpening 开户余额必须已经满足该类型的下限
func (p Policy) checkOpening(number string, opening decimal.Decimal) error {
	switch p.Kind {
	case KindSavings:
		if opening.LessThan(p.MinimumBalance) {
			return &PolicyError{Account: number, Rule: RuleMinimumBalance, Balance: opening, Limit: p.MinimumBalance}
		}
	case KindChecking:
		if opening.LessThan(p.OverdraftLimit.Neg()) {
			return &PolicyError{Account: number, Rule: RuleOverdraftExceeded, Balance: opening, Limit: p.OverdraftLimit}
		}
	default:
		if opening.IsNegative() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// PolicyConfig 各类型账户的默认策略参数
type PolicyConfig struct {
	SavingsInterestRate    decimal.Decimal
	SavingsMinimumBalance  decimal.Decimal
	CheckingOverdraftLimit decimal.Decimal
	CheckingMonthlyFee     decimal.Decimal
}

// DefaultPolicyConfig 储蓄户 3.5% / 最低 500，支票户透支 1000 / 月费 10
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		SavingsInterestRate:    decimal.RequireFromString("3.5"),
		SavingsMinimumBalance:  decimal.NewFromInt(500),
		CheckingOverdraftLimit: decimal.NewFromInt(1000),
		CheckingMonthlyFee:     decimal.NewFromInt(10),
	}
}

// For 按类型生成策略
func (c PolicyConfig) For(kind Kind) (Policy, error) {
	switch kind {
	case KindSavings:
		return SavingsPolicy(c.SavingsInterestRate, c.SavingsMinimumBalance), nil
	case KindChecking:
		return CheckingPolicy(c.CheckingOverdraftLimit, c.CheckingMonthlyFee), nil
	case KindBasic:
		return BasicPolicy(), nil
	}
	return Policy{}, fmt.Errorf("ledger: 未知账户类型 %q", kind)
}
