package ledger

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"corebank/pkg/idgen"
)

// Registry 账户注册表：持有全部账户、分配账户号、按号查找
//
// ordered 保持插入顺序，报表依赖这个稳定的遍历顺序。
type Registry struct {
	mu       sync.RWMutex
	seq      *idgen.Sequence
	byNumber map[string]*Account
	ordered  []*Account
	policies PolicyConfig
}

func NewRegistry(policies PolicyConfig) *Registry {
	return &Registry{
		seq:      idgen.NewSequence("ACC"),
		byNumber: make(map[string]*Account),
		policies: policies,
	}
}

// Open 按配置的策略开户并登记
//
// 开户余额不满足下限时直接失败，不消耗账户号、不登记。
func (r *Registry) Open(owner Owner, kind Kind, opening decimal.Decimal) (*Account, error) {
	policy, err := r.policies.For(kind)
	if err != nil {
		return nil, err
	}
	if err := policy.checkOpening("", opening); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	number := r.seq.Next()
	for r.byNumber[number] != nil {
		number = r.seq.Next()
	}
	acc, err := NewAccount(number, owner, policy, opening)
	if err != nil {
		return nil, err
	}
	r.storeLocked(acc)
	return acc, nil
}

// Register 登记外部构造的账户；账户号冲突返回 ErrDuplicateAccount
func (r *Registry) Register(acc *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[acc.number]; exists {
		return ErrDuplicateAccount
	}
	r.seq.Observe(acc.number)
	r.storeLocked(acc)
	return nil
}

func (r *Registry) storeLocked(acc *Account) {
	r.byNumber[acc.number] = acc
	r.ordered = append(r.ordered, acc)
}

// Find 账户不存在是正常情况，返回 false 而不是错误
func (r *Registry) Find(number string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byNumber[number]
	return acc, ok
}

// List 按插入顺序返回全部账户
func (r *Registry) List() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Account, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// SearchByOwnerName 客户姓名子串匹配，大小写不敏感
func (r *Registry) SearchByOwnerName(query string) []*Account {
	q := strings.ToLower(query)
	return r.filter(func(a *Account) bool {
		return strings.Contains(strings.ToLower(a.owner.Name), q)
	})
}

func (r *Registry) SearchByKind(kind Kind) []*Account {
	return r.filter(func(a *Account) bool {
		return a.policy.Kind == kind
	})
}

// TotalBalanceByKind 某类型账户余额合计
//
// 按账户号顺序同时锁住所有相关账户再读取，得到一致的切面；
// 加锁顺序与转账相同，不会死锁。
func (r *Registry) TotalBalanceByKind(kind Kind) decimal.Decimal {
	total := decimal.Zero
	for _, st := range snapshotAll(r.SearchByKind(kind)) {
		total = total.Add(st.Balance)
	}
	return total
}

// Snapshot 全部账户的一致切面，保持插入顺序
func (r *Registry) Snapshot() []AccountState {
	return snapshotAll(r.List())
}

func (r *Registry) filter(keep func(*Account) bool) []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Account
	for _, a := range r.ordered {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func snapshotAll(accounts []*Account) []AccountState {
	locked := make([]*Account, len(accounts))
	copy(locked, accounts)
	sort.Slice(locked, func(i, j int) bool { return locked[i].number < locked[j].number })
	for _, a := range locked {
		a.mu.Lock()
	}
	out := make([]AccountState, len(accounts))
	for i, a := range accounts {
		out[i] = a.stateLocked()
	}
	for _, a := range locked {
		a.mu.Unlock()
	}
	return out
}
