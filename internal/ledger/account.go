package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Status 账户状态
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
	StatusClosed   Status = "Closed"
)

// ParseStatus 大小写不敏感地解析账户状态
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	case "closed":
		return StatusClosed, nil
	}
	return "", fmt.Errorf("ledger: 未知账户状态 %q", s)
}

// Owner 账户所属客户的引用，账本只用于展示和按姓名检索，从不修改
type Owner struct {
	ID   string `json:"customer_id"`
	Name string `json:"customer_name"`
}

// Account 账户
//
// 余额只能通过 Deposit / Withdraw（或转账协调器）修改，每次修改都在 mu 保护下完成。
// Account 本身不写流水，记账是调用方的职责。
type Account struct {
	mu      sync.Mutex
	number  string
	owner   Owner
	policy  Policy
	balance decimal.Decimal
	status  Status
}

// AccountState 账户在某一时刻的只读快照
type AccountState struct {
	Number  string          `json:"account_number"`
	Owner   Owner           `json:"owner"`
	Policy  Policy          `json:"policy"`
	Balance decimal.Decimal `json:"balance"`
	Status  Status          `json:"status"`
}

// NewAccount 构造账户，开户余额必须满足策略下限
func NewAccount(number string, owner Owner, policy Policy, opening decimal.Decimal) (*Account, error) {
	if err := policy.checkOpening(number, opening); err != nil {
		return nil, err
	}
	return &Account{
		number:  number,
		owner:   owner,
		policy:  policy,
		balance: opening,
		status:  StatusActive,
	}, nil
}

func (a *Account) Number() string { return a.number }
func (a *Account) Owner() Owner   { return a.owner }
func (a *Account) Policy() Policy { return a.policy }
func (a *Account) Kind() Kind     { return a.policy.Kind }

func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *Account) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Snapshot 在锁内复制全部字段
func (a *Account) Snapshot() AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Account) stateLocked() AccountState {
	return AccountState{
		Number:  a.number,
		Owner:   a.owner,
		Policy:  a.policy,
		Balance: a.balance,
		Status:  a.status,
	}
}

// Interest 储蓄户按当前余额计算的利息（仅展示，不入账）
func (a *Account) Interest() decimal.Decimal {
	if a.policy.Kind != KindSavings {
		return decimal.Zero
	}
	return a.Balance().Mul(a.policy.InterestRate).Div(decimal.NewFromInt(100))
}

// Deposit 存款，金额必须为正，无上限
func (a *Account) Deposit(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.depositLocked(amount)
}

// Withdraw 取款，按账户类型执行策略校验
func (a *Account) Withdraw(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.withdrawLocked(amount)
}

// CheckWithdraw 只做策略判断，不修改余额
func (a *Account) CheckWithdraw(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusClosed {
		return ErrAccountClosed
	}
	return a.policy.checkWithdraw(a.number, a.balance, amount)
}

// SetStatus 变更状态；销户要求余额恰好为0，已销户的账户不能再变更
func (a *Account) SetStatus(status Status) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch status {
	case StatusActive, StatusInactive, StatusClosed:
	default:
		return fmt.Errorf("%w: 未知状态 %q", ErrInvalidTransition, status)
	}
	if a.status == StatusClosed && status != StatusClosed {
		return fmt.Errorf("%w: 账户 %s 已销户", ErrInvalidTransition, a.number)
	}
	if status == StatusClosed && !a.balance.IsZero() {
		return fmt.Errorf("%w: 账户 %s 余额 $%s 不为0，不能销户",
			ErrInvalidTransition, a.number, a.balance.StringFixed(2))
	}
	a.status = status
	return nil
}

// 以下方法要求调用方已持有 a.mu

func (a *Account) depositLocked(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.status == StatusClosed {
		return ErrAccountClosed
	}
	a.balance = a.balance.Add(amount)
	return nil
}

func (a *Account) withdrawLocked(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.status == StatusClosed {
		return ErrAccountClosed
	}
	if err := a.policy.checkWithdraw(a.number, a.balance, amount); err != nil {
		return err
	}
	a.balance = a.balance.Sub(amount)
	return nil
}
