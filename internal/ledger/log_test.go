package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func mustEntry(t *testing.T, account string, typ EntryType, amount, after string) Entry {
	t.Helper()
	e, err := NewEntry(account, typ, d(amount), d(after), "")
	require.NoError(t, err)
	return e
}

func TestNewEntry_Validation(t *testing.T) {
	_, err := NewEntry("", EntryDeposit, d("1"), d("1"), "")
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = NewEntry("ACC001", EntryType("FEE"), d("1"), d("1"), "")
	require.Error(t, err)

	_, err = NewEntry("ACC001", EntryDeposit, d("0"), d("1"), "")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLog_AppendAssignsSequentialIDs(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	log := NewLog(fixedClock(ts))

	got := log.Append(
		mustEntry(t, "ACC001", EntryDeposit, "10", "10"),
		mustEntry(t, "ACC002", EntryDeposit, "20", "20"),
	)
	require.Len(t, got, 2)
	assert.Equal(t, "TXN001", got[0].ID)
	assert.Equal(t, "TXN002", got[1].ID)
	assert.Equal(t, ts, got[0].Timestamp)
	assert.Equal(t, "01-03-2024 09:30 AM", got[0].FormattedTimestamp())

	assert.Nil(t, log.Append())
	assert.Equal(t, 2, log.Len())
}

func TestLog_HistoryNewestFirstStableTies(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	log := NewLog(nil)

	early := mustEntry(t, "ACC001", EntryDeposit, "1", "1")
	early.Timestamp = base
	tieA := mustEntry(t, "ACC001", EntryDeposit, "2", "3")
	tieA.Timestamp = base.Add(time.Minute)
	other := mustEntry(t, "ACC002", EntryDeposit, "9", "9")
	other.Timestamp = base.Add(time.Hour)
	tieB := mustEntry(t, "ACC001", EntryWithdrawal, "1", "2")
	tieB.Timestamp = base.Add(time.Minute)
	log.Append(early, tieA, other, tieB)

	ids := func(es []Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"TXN001", "TXN002", "TXN004"}, ids(log.ForAccount("ACC001")))
	assert.Equal(t, []string{"TXN002", "TXN004", "TXN001"}, ids(log.History("ACC001")))
	assert.Empty(t, log.History("ACC404"))
}

func TestLog_TotalsAndNetChange(t *testing.T) {
	log := NewLog(nil)
	log.Append(
		mustEntry(t, "ACC001", EntryDeposit, "100", "100"),
		mustEntry(t, "ACC001", EntryTransferIn, "50", "150"),
		mustEntry(t, "ACC001", EntryWithdrawal, "30", "120"),
		mustEntry(t, "ACC001", EntryTransferOut, "200", "-80"),
		mustEntry(t, "ACC002", EntryDeposit, "999", "999"),
	)

	assert.True(t, log.TotalByType("ACC001", EntryDeposit).Equal(d("100")))
	assert.True(t, log.TotalByType("ACC001", EntryTransferOut).Equal(d("200")))
	assert.True(t, log.TotalByType("ACC404", EntryDeposit).IsZero())
	assert.True(t, log.NetChange("ACC001").Equal(d("-80")))

	// 没有中间变更时，查询结果稳定
	assert.Equal(t, log.ForAccount("ACC001"), log.ForAccount("ACC001"))
	assert.True(t, log.TotalByType("ACC001", EntryDeposit).Equal(log.TotalByType("ACC001", EntryDeposit)))
}

func TestLog_ConcurrentAppendUniqueIDs(t *testing.T) {
	log := NewLog(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(mustEntry(t, "ACC001", EntryDeposit, "1", "1"))
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, e := range log.Entries() {
		require.False(t, seen[e.ID], e.ID)
		seen[e.ID] = true
	}
	assert.Len(t, seen, 50)
}

func TestLog_RestoreKeepsIDsAndAdvancesSequence(t *testing.T) {
	log := NewLog(nil)
	e := mustEntry(t, "ACC001", EntryDeposit, "5", "5")
	e.ID = "TXN007"
	e.Timestamp = time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)

	restored, err := log.Restore(e)
	require.NoError(t, err)
	assert.Equal(t, "TXN007", restored.ID)
	assert.Equal(t, e.Timestamp, restored.Timestamp)

	next := log.Append(mustEntry(t, "ACC001", EntryDeposit, "1", "6"))
	assert.Equal(t, "TXN008", next[0].ID)
}

func TestLog_RestoreRejectsDuplicateID(t *testing.T) {
	log := NewLog(nil)
	appended := log.Append(mustEntry(t, "ACC001", EntryDeposit, "5", "5"))

	dup := mustEntry(t, "ACC001", EntryDeposit, "5", "5")
	dup.ID = appended[0].ID
	_, err := log.Restore(dup)
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, 1, log.Len())

	e := mustEntry(t, "ACC001", EntryWithdrawal, "2", "3")
	e.ID = "TXN005"
	_, err = log.Restore(e)
	require.NoError(t, err)
	_, err = log.Restore(e)
	require.ErrorIs(t, err, ErrDuplicateEntry)
	assert.Equal(t, 2, log.Len())
	assert.True(t, log.NetChange("ACC001").Equal(d("3")))
}
