package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransferState 一次转账尝试所处的阶段
type TransferState string

const (
	TransferValidated TransferState = "Validated"
	TransferWithdrawn TransferState = "Withdrawn"
	TransferDeposited TransferState = "Deposited"
	TransferLogged    TransferState = "Logged"
	TransferAborted   TransferState = "Aborted"
)

// TransferReceipt 成功转账产生的两条流水
type TransferReceipt struct {
	Out   Entry         `json:"out"`
	In    Entry         `json:"in"`
	State TransferState `json:"state"`
}

// TransferError 转账在某一阶段被中止
//
// Stage 是中止前最后到达的阶段；到达 Withdrawn 之前中止的转账不会改动任何余额或流水。
type TransferError struct {
	From  string
	To    string
	Stage TransferState
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("ledger: 转账 %s -> %s 在 %s 阶段中止: %v", e.From, e.To, e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Coordinator 转账协调器
//
// 【转账流程】
// 1. 校验：转出≠转入、金额>0、两个账户存在且未销户、转出账户策略允许
// 2. 按账户号字典序加锁（与方向无关，避免死锁）
// 3. 先取款再存款；存款不会失败，所以不需要补偿回滚
// 4. 两条流水作为一批追加到日志，执行追加回调，之后才释放两把锁
type Coordinator struct {
	registry *Registry
	log      *Log
	hook     AppendHook
}

func NewCoordinator(registry *Registry, log *Log) *Coordinator {
	return &Coordinator{registry: registry, log: log}
}

// Transfer 失败时两个账户余额和日志条数都与调用前一致
func (c *Coordinator) Transfer(from, to string, amount decimal.Decimal) (TransferReceipt, error) {
	abort := func(stage TransferState, err error) (TransferReceipt, error) {
		return TransferReceipt{}, &TransferError{From: from, To: to, Stage: stage, Err: err}
	}

	if from == to {
		return abort(TransferAborted, ErrSameAccount)
	}
	if !amount.IsPositive() {
		return abort(TransferAborted, ErrInvalidAmount)
	}
	src, ok := c.registry.Find(from)
	if !ok {
		return abort(TransferAborted, fmt.Errorf("%w: %s", ErrAccountNotFound, from))
	}
	dst, ok := c.registry.Find(to)
	if !ok {
		return abort(TransferAborted, fmt.Errorf("%w: %s", ErrAccountNotFound, to))
	}

	first, second := src, dst
	if second.number < first.number {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	// 持锁后再做一次纯策略判断，此时余额不会再被其他调用者改动
	if src.status == StatusClosed || dst.status == StatusClosed {
		return abort(TransferAborted, ErrAccountClosed)
	}
	if err := src.policy.checkWithdraw(src.number, src.balance, amount); err != nil {
		return abort(TransferAborted, err)
	}
	state := TransferValidated

	if err := src.withdrawLocked(amount); err != nil {
		return abort(state, err)
	}
	state = TransferWithdrawn

	if err := dst.depositLocked(amount); err != nil {
		// 校验阶段已排除所有存款失败的可能
		panic(fmt.Sprintf("ledger: 转入 %s 在 %s 阶段之后失败: %v", dst.number, state, err))
	}
	state = TransferDeposited

	out, err := NewEntry(src.number, EntryTransferOut, amount, src.balance, dst.number)
	if err != nil {
		panic(fmt.Sprintf("ledger: 转账流水在 %s 阶段之后构造失败: %v", state, err))
	}
	in, err := NewEntry(dst.number, EntryTransferIn, amount, dst.balance, src.number)
	if err != nil {
		panic(fmt.Sprintf("ledger: 转账流水在 %s 阶段之后构造失败: %v", state, err))
	}
	appended := c.log.Append(out, in)
	if c.hook != nil {
		c.hook(appended)
	}
	state = TransferLogged

	return TransferReceipt{Out: appended[0], In: appended[1], State: state}, nil
}
