package flatfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corebank/internal/customer"
	"corebank/internal/ledger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStore_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 2, 29, 16, 45, 0, 0, time.Local)
	dir := customer.NewDirectory()
	l := ledger.New(ledger.WithClock(func() time.Time { return ts }))

	alice := dir.Create("Alice Smith", 30, "+94 77 123 4567", "12 Main Street", customer.TypePremium)
	bob := dir.Create("Bob", 41, "0779999999", "4 Hill Road", customer.TypeRegular)

	sav, err := l.Open(alice.Ref(), ledger.KindSavings, d("1500"))
	require.NoError(t, err)
	chk, err := l.Open(bob.Ref(), ledger.KindChecking, d("200"))
	require.NoError(t, err)
	basic, err := l.Open(bob.Ref(), ledger.KindBasic, d("0"))
	require.NoError(t, err)
	require.NoError(t, l.SetStatus(basic.Number(), ledger.StatusClosed))

	_, err = l.Deposit(sav.Number(), d("99.99"))
	require.NoError(t, err)
	_, err = l.Transfer(chk.Number(), sav.Number(), d("700"))
	require.NoError(t, err)

	store := NewStore(t.TempDir())
	saved, err := store.Save(dir, l)
	require.NoError(t, err)
	assert.Equal(t, Counts{Customers: 2, Accounts: 3, Transactions: 3}, saved)
	assert.True(t, store.Exists())

	dir2 := customer.NewDirectory()
	l2 := ledger.New()
	loaded, err := store.Load(dir2, l2)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	assert.Equal(t, dir.List(), dir2.List())
	assert.Equal(t, accountLines(l), accountLines(l2))
	assert.Equal(t, transactionLines(l), transactionLines(l2))

	restored, ok := l2.Find(sav.Number())
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", restored.Owner().Name)
	assert.True(t, restored.Balance().Equal(d("2299.99")))

	// 恢复后继续编号
	next, err := l2.Open(alice.Ref(), ledger.KindBasic, d("1"))
	require.NoError(t, err)
	assert.Equal(t, "ACC004", next.Number())
	assert.Equal(t, "CUS003", dir2.Create("Carol", 22, "", "", customer.TypeRegular).ID)
}

func TestStore_LoadTwiceKeepsEntriesUnique(t *testing.T) {
	dir := customer.NewDirectory()
	l := ledger.New()
	alice := dir.Create("Alice", 30, "", "", customer.TypeRegular)
	acc, err := l.Open(alice.Ref(), ledger.KindBasic, d("0"))
	require.NoError(t, err)
	_, err = l.Deposit(acc.Number(), d("40"))
	require.NoError(t, err)

	store := NewStore(t.TempDir())
	_, err = store.Save(dir, l)
	require.NoError(t, err)

	dir2 := customer.NewDirectory()
	l2 := ledger.New()
	_, err = store.Load(dir2, l2)
	require.NoError(t, err)

	// 重复载入同一份数据：账户和流水都已存在，逐行跳过
	again, err := store.Load(dir2, l2)
	require.NoError(t, err)
	assert.Zero(t, again.Accounts)
	assert.Zero(t, again.Transactions)
	assert.Equal(t, 1, l2.Log().Len())
	assert.True(t, l2.NetChange(acc.Number()).Equal(d("40")))
}

func accountLines(l *ledger.Ledger) [][]string {
	var out [][]string
	for _, st := range l.Registry().Snapshot() {
		out = append(out, accountRecord(st))
	}
	return out
}

func transactionLines(l *ledger.Ledger) [][]string {
	var out [][]string
	for _, e := range l.Entries() {
		out = append(out, transactionRecord(e))
	}
	return out
}

func TestStore_FileLayout(t *testing.T) {
	ts := time.Date(2024, 1, 5, 9, 5, 0, 0, time.Local)
	dir := customer.NewDirectory()
	l := ledger.New(ledger.WithClock(func() time.Time { return ts }))
	c := dir.Create("Alice", 30, "0771234567", "12 Main Street", customer.TypeRegular)
	a, err := l.Open(c.Ref(), ledger.KindSavings, d("600"))
	require.NoError(t, err)
	b, err := l.Open(c.Ref(), ledger.KindChecking, d("0"))
	require.NoError(t, err)
	_, err = l.Transfer(a.Number(), b.Number(), d("50"))
	require.NoError(t, err)

	root := t.TempDir()
	_, err = NewStore(root).Save(dir, l)
	require.NoError(t, err)

	read := func(name string) string {
		raw, err := os.ReadFile(filepath.Join(root, name))
		require.NoError(t, err)
		return string(raw)
	}
	assert.Equal(t, "CUSTOMER|CUS001|Alice|30|0771234567|12 Main Street|Regular\n", read(CustomersFile))
	assert.Equal(t,
		"ACCOUNT|ACC001|Savings|CUS001|550.00|Active|3.5|500.00\n"+
			"ACCOUNT|ACC002|Checking|CUS001|50.00|Active|1000.00|10.00\n",
		read(AccountsFile))
	assert.Equal(t,
		"TRANSACTION|TXN001|ACC001|TRANSFER_OUT|50.00|550.00|05-01-2024 09:05 AM|ACC002\n"+
			"TRANSACTION|TXN002|ACC002|TRANSFER_IN|50.00|50.00|05-01-2024 09:05 AM|ACC001\n",
		read(TransactionsFile))
}

func TestStore_LoadSkipsBadLines(t *testing.T) {
	root := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	write(CustomersFile, "CUSTOMER|CUS001|Alice|30|077|Street 1|Regular\nCUSTOMER|CUS002|Bob|old|077|x|Regular\n")
	write(AccountsFile, "ACCOUNT|ACC001|Basic|CUS001|10.00|Active\n"+
		"ACCOUNT|ACC002|Basic|CUS404|10.00|Active\n"+
		"ACCOUNT|ACC003|Savings|CUS001|100.00|Active|3.5|500.00\n"+
		"GARBAGE\n")
	write(TransactionsFile, "TRANSACTION|TXN001|ACC001|DEPOSIT|10.00|10.00|01-01-2024 10:00 AM\n"+
		"TRANSACTION|TXN002|ACC002|DEPOSIT|10.00|10.00|01-01-2024 10:00 AM\n"+
		"TRANSACTION|TXN003|ACC001|DEPOSIT|10.00|10.00|yesterday\n")

	dir := customer.NewDirectory()
	l := ledger.New()
	counts, err := NewStore(root).Load(dir, l)
	require.NoError(t, err)
	assert.Equal(t, Counts{Customers: 1, Accounts: 1, Transactions: 1}, counts)
}

func TestStore_LoadMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent"))
	assert.False(t, store.Exists())

	counts, err := store.Load(customer.NewDirectory(), ledger.New())
	require.NoError(t, err)
	assert.Zero(t, counts)
}
