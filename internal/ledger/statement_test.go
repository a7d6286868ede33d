package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatement_Layout(t *testing.T) {
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	l := New(WithClock(clock))

	acc, err := l.Open(Owner{ID: "CUS001", Name: "Alice Smith"}, KindChecking, d("100"))
	require.NoError(t, err)
	other, err := l.Open(Owner{ID: "CUS002", Name: "Bob"}, KindBasic, d("0"))
	require.NoError(t, err)

	_, err = l.Deposit(acc.Number(), d("50"))
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = l.Transfer(acc.Number(), other.Number(), d("400.5"))
	require.NoError(t, err)

	got, err := l.Statement(acc.Number())
	require.NoError(t, err)

	want := "GENERATE ACCOUNT STATEMENT\n" +
		"_______\n" +
		"\n" +
		"Account: Alice Smith (Checking)\n" +
		"Current Balance: $-250.50\n" +
		"\n" +
		"Transactions:\n" +
		"_______\n" +
		"TXN002 | TRANSFER_OUT | -$400.50 | $-250.50\n" +
		"TXN001 | DEPOSIT    | +$50.00 | $150.00\n" +
		"_______\n" +
		"Net Change: $350.50\n"
	assert.Equal(t, want, got)
}

func TestStatement_Empty(t *testing.T) {
	l := New()
	acc, err := l.Open(Owner{Name: "Bob"}, KindSavings, d("500"))
	require.NoError(t, err)

	got, err := l.Statement(acc.Number())
	require.NoError(t, err)
	assert.Contains(t, got, "Account: Bob (Savings)\nCurrent Balance: $500.00\n")
	assert.Contains(t, got, "_______\nNo transactions found.\n_______\n")
	assert.Contains(t, got, "Net Change: +$0.00\n")
}
