package flatfile

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"corebank/internal/customer"
	"corebank/internal/ledger"
)

// 记录类型标签，每行第一个字段
const (
	tagAccount     = "ACCOUNT"
	tagCustomer    = "CUSTOMER"
	tagTransaction = "TRANSACTION"
)

var ErrMalformedRecord = errors.New("flatfile: 记录格式错误")

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ==================== ACCOUNT ====================

// accountRecord ACCOUNT|编号|类型|客户编号|余额|状态|策略参数...
//   - Savings:  利率|最低余额
//   - Checking: 透支额度|月费
//   - Basic:    无
func accountRecord(st ledger.AccountState) []string {
	rec := []string{
		tagAccount,
		st.Number,
		string(st.Policy.Kind),
		st.Owner.ID,
		money(st.Balance),
		string(st.Status),
	}
	switch st.Policy.Kind {
	case ledger.KindSavings:
		rec = append(rec, st.Policy.InterestRate.String(), money(st.Policy.MinimumBalance))
	case ledger.KindChecking:
		rec = append(rec, money(st.Policy.OverdraftLimit), money(st.Policy.MonthlyFee))
	}
	return rec
}

// parseAccount 客户姓名由调用方按客户编号补全
func parseAccount(rec []string) (ledger.AccountState, error) {
	if len(rec) < 6 || rec[0] != tagAccount {
		return ledger.AccountState{}, fmt.Errorf("%w: %v", ErrMalformedRecord, rec)
	}
	kind, err := ledger.ParseKind(rec[2])
	if err != nil {
		return ledger.AccountState{}, err
	}
	balance, err := decimal.NewFromString(rec[4])
	if err != nil {
		return ledger.AccountState{}, fmt.Errorf("%w: 余额 %q", ErrMalformedRecord, rec[4])
	}
	status, err := ledger.ParseStatus(rec[5])
	if err != nil {
		return ledger.AccountState{}, err
	}

	var policy ledger.Policy
	switch kind {
	case ledger.KindSavings, ledger.KindChecking:
		if len(rec) < 8 {
			return ledger.AccountState{}, fmt.Errorf("%w: %s 账户缺少策略参数", ErrMalformedRecord, kind)
		}
		p1, err1 := decimal.NewFromString(rec[6])
		p2, err2 := decimal.NewFromString(rec[7])
		if err := errors.Join(err1, err2); err != nil {
			return ledger.AccountState{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if kind == ledger.KindSavings {
			policy = ledger.SavingsPolicy(p1, p2)
		} else {
			policy = ledger.CheckingPolicy(p1, p2)
		}
	default:
		policy = ledger.BasicPolicy()
	}

	return ledger.AccountState{
		Number:  rec[1],
		Owner:   ledger.Owner{ID: rec[3]},
		Policy:  policy,
		Balance: balance,
		Status:  status,
	}, nil
}

// ==================== CUSTOMER ====================

func customerRecord(c customer.Customer) []string {
	return []string{
		tagCustomer,
		c.ID,
		c.Name,
		strconv.Itoa(c.Age),
		c.Contact,
		c.Address,
		string(c.Type),
	}
}

func parseCustomer(rec []string) (customer.Customer, error) {
	if len(rec) < 7 || rec[0] != tagCustomer {
		return customer.Customer{}, fmt.Errorf("%w: %v", ErrMalformedRecord, rec)
	}
	age, err := strconv.Atoi(rec[3])
	if err != nil {
		return customer.Customer{}, fmt.Errorf("%w: 年龄 %q", ErrMalformedRecord, rec[3])
	}
	typ, err := customer.ParseType(rec[6])
	if err != nil {
		return customer.Customer{}, err
	}
	return customer.Customer{
		ID:      rec[1],
		Name:    rec[2],
		Age:     age,
		Contact: rec[4],
		Address: rec[5],
		Type:    typ,
	}, nil
}

// ==================== TRANSACTION ====================

// transactionRecord TRANSACTION|流水号|账户|类型|金额|变动后余额|时间[|对方账户]
func transactionRecord(e ledger.Entry) []string {
	rec := []string{
		tagTransaction,
		e.ID,
		e.Account,
		string(e.Type),
		money(e.Amount),
		money(e.BalanceAfter),
		e.FormattedTimestamp(),
	}
	if e.Related != "" {
		rec = append(rec, e.Related)
	}
	return rec
}

func parseTransaction(rec []string, loc *time.Location) (ledger.Entry, error) {
	if len(rec) < 7 || rec[0] != tagTransaction {
		return ledger.Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, rec)
	}
	typ, err := ledger.ParseEntryType(rec[3])
	if err != nil {
		return ledger.Entry{}, err
	}
	amount, err1 := decimal.NewFromString(rec[4])
	after, err2 := decimal.NewFromString(rec[5])
	if err := errors.Join(err1, err2); err != nil {
		return ledger.Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	ts, err := time.ParseInLocation(ledger.TimestampLayout, rec[6], loc)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("%w: 时间 %q", ErrMalformedRecord, rec[6])
	}

	e, err := ledger.NewEntry(rec[2], typ, amount, after, "")
	if err != nil {
		return ledger.Entry{}, err
	}
	e.ID = rec[1]
	e.Timestamp = ts
	if len(rec) > 7 {
		e.Related = rec[7]
	}
	return e, nil
}
