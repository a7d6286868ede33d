package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"corebank/pkg/idgen"
)

// Log 只追加的流水日志
//
// 一次 Append 的多条流水在同一把锁内写入，读者要么全部看到，要么全部看不到，
// 因此不会出现只有 TRANSFER_OUT 而没有 TRANSFER_IN 的中间状态。
type Log struct {
	mu      sync.RWMutex
	seq     *idgen.Sequence
	entries []Entry
	ids     map[string]struct{}
	now     func() time.Time
}

// NewLog now 为 nil 时使用 time.Now
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{
		seq: idgen.NewSequence("TXN"),
		ids: make(map[string]struct{}),
		now: now,
	}
}

// Append 追加流水，按顺序分配流水号；Timestamp 为零值时取当前时间
func (l *Log) Append(entries ...Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.ID = l.seq.Next()
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		l.ids[e.ID] = struct{}{}
		l.entries = append(l.entries, e)
		out[i] = e
	}
	return out
}

// ForAccount 按日志插入顺序返回某账户的全部流水
func (l *Log) ForAccount(number string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, e := range l.entries {
		if e.Account == number {
			out = append(out, e)
		}
	}
	return out
}

// History 倒序（最新在前）返回某账户流水，时间相同的保持日志顺序
func (l *Log) History(number string) []Entry {
	out := l.ForAccount(number)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// TotalByType 某账户某类型流水金额合计，无匹配返回0
func (l *Log) TotalByType(number string, typ EntryType) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, e := range l.entries {
		if e.Account == number && e.Type == typ {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Totals 某账户入账合计（DEPOSIT+TRANSFER_IN）与出账合计（WITHDRAWAL+TRANSFER_OUT）
func (l *Log) Totals(number string) (credits, debits decimal.Decimal) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	credits, debits = decimal.Zero, decimal.Zero
	for _, e := range l.entries {
		if e.Account != number {
			continue
		}
		if e.Type.Credit() {
			credits = credits.Add(e.Amount)
		} else {
			debits = debits.Add(e.Amount)
		}
	}
	return credits, debits
}

// NetChange 每次从日志重新计算，不缓存
func (l *Log) NetChange(number string) decimal.Decimal {
	credits, debits := l.Totals(number)
	return credits.Sub(debits)
}

// Entries 全部流水的副本
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Restore 重新载入已持久化的流水，保留原流水号和时间，并让序列越过该流水号
//
// 流水号已在日志中时返回 ErrDuplicateEntry，日志不变；同一份数据被两个来源
// 重复载入时靠这里挡住。
func (l *Log) Restore(e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID != "" {
		if _, ok := l.ids[e.ID]; ok {
			return Entry{}, fmt.Errorf("恢复流水 %s 失败: %w", e.ID, ErrDuplicateEntry)
		}
	}
	if e.ID == "" || !l.seq.Observe(e.ID) {
		e.ID = l.seq.Next()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	l.ids[e.ID] = struct{}{}
	l.entries = append(l.entries, e)
	return e, nil
}
