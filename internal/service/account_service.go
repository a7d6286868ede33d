package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"corebank/internal/customer"
	"corebank/internal/ledger"
	"corebank/internal/observability"
)

type AccountService struct {
	ledger    *ledger.Ledger
	customers *customer.Directory
	metrics   *observability.Metrics
}

func NewAccountService(l *ledger.Ledger, customers *customer.Directory, metrics *observability.Metrics) *AccountService {
	return &AccountService{
		ledger:    l,
		customers: customers,
		metrics:   metrics,
	}
}

type OpenAccountRequest struct {
	CustomerID     string          `json:"customer_id" binding:"required"`
	Type           string          `json:"type" binding:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AccountView 账户详情
type AccountView struct {
	ledger.AccountState
	Interest  decimal.Decimal `json:"interest"`
	FeeWaived bool            `json:"fee_waived"`
}

// Summary 按类型汇总余额
type Summary struct {
	AccountCount int                    `json:"account_count"`
	Totals       map[ledger.Kind]string `json:"totals"`
	Counts       map[ledger.Kind]int    `json:"counts"`
}

// HistoryView 倒序流水与合计
type HistoryView struct {
	AccountNumber     string         `json:"account_number"`
	Entries           []ledger.Entry `json:"entries"`
	TotalDeposits     string         `json:"total_deposits"`
	TotalWithdrawals  string         `json:"total_withdrawals"`
	TotalTransfersIn  string         `json:"total_transfers_in"`
	TotalTransfersOut string         `json:"total_transfers_out"`
	NetChange         string         `json:"net_change"`
}

func (s *AccountService) view(acc *ledger.Account) AccountView {
	st := acc.Snapshot()
	v := AccountView{AccountState: st, Interest: acc.Interest()}
	if c, ok := s.customers.Find(st.Owner.ID); ok && st.Policy.Kind == ledger.KindChecking {
		v.FeeWaived = c.FeeWaived()
	}
	return v
}

func (s *AccountService) find(number string) (*ledger.Account, error) {
	acc, ok := s.ledger.Find(number)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, number)
	}
	return acc, nil
}

// Open 为已登记的客户开户
func (s *AccountService) Open(req *OpenAccountRequest) (*AccountView, error) {
	c, err := s.customers.Get(req.CustomerID)
	if err != nil {
		return nil, err
	}
	kind, err := ledger.ParseKind(req.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	acc, err := s.ledger.Open(c.Ref(), kind, req.OpeningBalance)
	observe(s.metrics, "open", err)
	if err != nil {
		return nil, err
	}
	v := s.view(acc)
	return &v, nil
}

func (s *AccountService) Get(number string) (*AccountView, error) {
	acc, err := s.find(number)
	if err != nil {
		return nil, err
	}
	v := s.view(acc)
	return &v, nil
}

// List 可按客户姓名子串和账户类型过滤，两个条件同时给出时取交集
func (s *AccountService) List(name, kind string) ([]AccountView, error) {
	var accounts []*ledger.Account
	if name != "" {
		accounts = s.ledger.SearchByOwnerName(name)
	} else {
		accounts = s.ledger.Accounts()
	}

	var want ledger.Kind
	if kind != "" {
		k, err := ledger.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
		}
		want = k
	}

	views := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		if want != "" && acc.Kind() != want {
			continue
		}
		views = append(views, s.view(acc))
	}
	return views, nil
}

func (s *AccountService) Summary() Summary {
	sum := Summary{
		AccountCount: len(s.ledger.Accounts()),
		Totals:       make(map[ledger.Kind]string),
		Counts:       make(map[ledger.Kind]int),
	}
	for _, kind := range []ledger.Kind{ledger.KindSavings, ledger.KindChecking, ledger.KindBasic} {
		sum.Totals[kind] = s.ledger.TotalBalanceByKind(kind).StringFixed(2)
		sum.Counts[kind] = len(s.ledger.SearchByKind(kind))
	}
	return sum
}

func (s *AccountService) SetStatus(number, status string) (*AccountView, error) {
	st, err := ledger.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	err = s.ledger.SetStatus(number, st)
	observe(s.metrics, "set_status", err)
	if err != nil {
		return nil, err
	}
	return s.Get(number)
}

// Deposit 流水事件由账本的追加回调在账户锁内发布
func (s *AccountService) Deposit(_ context.Context, number string, amount decimal.Decimal) (ledger.Entry, error) {
	e, err := s.ledger.Deposit(number, amount)
	observe(s.metrics, "deposit", err)
	if err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func (s *AccountService) Withdraw(_ context.Context, number string, amount decimal.Decimal) (ledger.Entry, error) {
	e, err := s.ledger.Withdraw(number, amount)
	observe(s.metrics, "withdraw", err)
	if err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func (s *AccountService) History(number string) (*HistoryView, error) {
	if _, err := s.find(number); err != nil {
		return nil, err
	}
	total := func(t ledger.EntryType) string {
		return s.ledger.TotalByType(number, t).StringFixed(2)
	}
	return &HistoryView{
		AccountNumber:     number,
		Entries:           s.ledger.History(number),
		TotalDeposits:     total(ledger.EntryDeposit),
		TotalWithdrawals:  total(ledger.EntryWithdrawal),
		TotalTransfersIn:  total(ledger.EntryTransferIn),
		TotalTransfersOut: total(ledger.EntryTransferOut),
		NetChange:         s.ledger.NetChange(number).StringFixed(2),
	}, nil
}

func (s *AccountService) Statement(number string) (string, error) {
	return s.ledger.Statement(number)
}
