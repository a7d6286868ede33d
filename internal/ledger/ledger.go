package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger 账本门面：账户注册表、流水日志、转账协调器的唯一入口
//
// 存款/取款在持有账户锁期间完成余额修改和流水追加，
// 因此流水里的 BalanceAfter 一定等于追加那一刻的余额。
type Ledger struct {
	registry    *Registry
	log         *Log
	coordinator *Coordinator
	hook        AppendHook
}

type options struct {
	policies PolicyConfig
	now      func() time.Time
	hook     AppendHook
}

// AppendHook 新流水追加后的回调
//
// 回调在相关账户锁仍被持有时同步执行，同一账户的回调顺序与流水号顺序一致；
// 回调里不能再调用 Ledger 的变更方法，否则会死锁。Restore/Replay 不触发回调。
type AppendHook func(entries []Entry)

type Option func(*options)

// WithPolicies 覆盖默认的账户类型策略参数
func WithPolicies(p PolicyConfig) Option {
	return func(o *options) { o.policies = p }
}

// WithClock 指定流水时间来源，测试里用固定时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithAppendHook 注册流水追加回调，用于在账户锁内写 outbox
func WithAppendHook(hook AppendHook) Option {
	return func(o *options) { o.hook = hook }
}

func New(opts ...Option) *Ledger {
	o := options{policies: DefaultPolicyConfig(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	registry := NewRegistry(o.policies)
	log := NewLog(o.now)
	coordinator := NewCoordinator(registry, log)
	coordinator.hook = o.hook
	return &Ledger{
		registry:    registry,
		log:         log,
		coordinator: coordinator,
		hook:        o.hook,
	}
}

func (l *Ledger) Registry() *Registry { return l.registry }
func (l *Ledger) Log() *Log           { return l.log }

// ==================== 构造 ====================

// Open 开户；开户余额不满足下限时不登记任何账户
func (l *Ledger) Open(owner Owner, kind Kind, opening decimal.Decimal) (*Account, error) {
	return l.registry.Open(owner, kind, opening)
}

// Restore 按持久化的账户状态重建账户（不写流水）
//
// 状态必须是已知值，且销户账户余额必须为0，与 SetStatus 的约束一致；
// 状态为空按 Active 处理。
func (l *Ledger) Restore(st AccountState) (*Account, error) {
	acc, err := NewAccount(st.Number, st.Owner, st.Policy, st.Balance)
	if err != nil {
		return nil, fmt.Errorf("恢复账户 %s 失败: %w", st.Number, err)
	}
	switch st.Status {
	case "":
	case StatusActive, StatusInactive:
		acc.status = st.Status
	case StatusClosed:
		if !st.Balance.IsZero() {
			return nil, fmt.Errorf("恢复账户 %s 失败: %w: 销户账户余额为 $%s",
				st.Number, ErrInvalidTransition, st.Balance.StringFixed(2))
		}
		acc.status = st.Status
	default:
		return nil, fmt.Errorf("恢复账户 %s 失败: %w: 未知状态 %q", st.Number, ErrInvalidTransition, st.Status)
	}
	if err := l.registry.Register(acc); err != nil {
		return nil, fmt.Errorf("恢复账户 %s 失败: %w", st.Number, err)
	}
	return acc, nil
}

// Replay 重新载入一条持久化的流水，不修改余额（余额已随账户恢复）
//
// 流水号已存在时返回 ErrDuplicateEntry。
func (l *Ledger) Replay(e Entry) (Entry, error) {
	if _, ok := l.registry.Find(e.Account); !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrAccountNotFound, e.Account)
	}
	if !e.Type.Valid() {
		return Entry{}, fmt.Errorf("ledger: 未知流水类型 %q", e.Type)
	}
	if !e.Amount.IsPositive() {
		return Entry{}, ErrInvalidAmount
	}
	return l.log.Restore(e)
}

// ==================== 变更 ====================

// Deposit 存款并记一条 DEPOSIT 流水
func (l *Ledger) Deposit(number string, amount decimal.Decimal) (Entry, error) {
	return l.mutate(number, EntryDeposit, amount, (*Account).depositLocked)
}

// Withdraw 取款并记一条 WITHDRAWAL 流水；被策略拒绝时余额和日志都不变
func (l *Ledger) Withdraw(number string, amount decimal.Decimal) (Entry, error) {
	return l.mutate(number, EntryWithdrawal, amount, (*Account).withdrawLocked)
}

func (l *Ledger) mutate(number string, typ EntryType, amount decimal.Decimal,
	apply func(*Account, decimal.Decimal) error) (Entry, error) {

	acc, ok := l.registry.Find(number)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if err := apply(acc, amount); err != nil {
		return Entry{}, err
	}
	e, err := NewEntry(acc.number, typ, amount, acc.balance, "")
	if err != nil {
		return Entry{}, err
	}
	appended := l.log.Append(e)
	if l.hook != nil {
		l.hook(appended)
	}
	return appended[0], nil
}

// Transfer 原子转账，见 Coordinator
func (l *Ledger) Transfer(from, to string, amount decimal.Decimal) (TransferReceipt, error) {
	return l.coordinator.Transfer(from, to, amount)
}

func (l *Ledger) SetStatus(number string, status Status) error {
	acc, ok := l.registry.Find(number)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	return acc.SetStatus(status)
}

// ==================== 查询 ====================

func (l *Ledger) Find(number string) (*Account, bool) {
	return l.registry.Find(number)
}

func (l *Ledger) Accounts() []*Account {
	return l.registry.List()
}

func (l *Ledger) SearchByOwnerName(query string) []*Account {
	return l.registry.SearchByOwnerName(query)
}

func (l *Ledger) SearchByKind(kind Kind) []*Account {
	return l.registry.SearchByKind(kind)
}

func (l *Ledger) TotalBalanceByKind(kind Kind) decimal.Decimal {
	return l.registry.TotalBalanceByKind(kind)
}

// History 倒序流水
func (l *Ledger) History(number string) []Entry {
	return l.log.History(number)
}

func (l *Ledger) TotalByType(number string, typ EntryType) decimal.Decimal {
	return l.log.TotalByType(number, typ)
}

func (l *Ledger) NetChange(number string) decimal.Decimal {
	return l.log.NetChange(number)
}

func (l *Ledger) Entries() []Entry {
	return l.log.Entries()
}

// Statement 生成账户对账单文本
func (l *Ledger) Statement(number string) (string, error) {
	acc, ok := l.registry.Find(number)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAccountNotFound, number)
	}
	// 持有账户锁读取，余额与流水来自同一时刻
	acc.mu.Lock()
	st := acc.stateLocked()
	history := l.log.History(number)
	net := l.log.NetChange(number)
	acc.mu.Unlock()

	return RenderStatement(st, history, net), nil
}
