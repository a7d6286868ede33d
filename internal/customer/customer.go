package customer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"corebank/internal/ledger"
	"corebank/pkg/idgen"
)

var (
	ErrCustomerNotFound  = errors.New("customer: 客户不存在")
	ErrDuplicateCustomer = errors.New("customer: 客户编号已存在")
)

// Type 客户等级
type Type string

const (
	TypeRegular Type = "Regular"
	TypePremium Type = "Premium"
)

func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "":
		return TypeRegular, nil
	case "premium":
		return TypePremium, nil
	}
	return "", fmt.Errorf("customer: 未知客户类型 %q", s)
}

// Customer 客户资料，账本只通过 Ref() 引用
type Customer struct {
	ID      string `json:"customer_id"`
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Contact string `json:"contact"`
	Address string `json:"address"`
	Type    Type   `json:"type"`
}

// Ref 账户持有的客户引用
func (c Customer) Ref() ledger.Owner {
	return ledger.Owner{ID: c.ID, Name: c.Name}
}

// FeeWaived 高级客户免支票户月费
func (c Customer) FeeWaived() bool {
	return c.Type == TypePremium
}

// Directory 客户目录
type Directory struct {
	mu      sync.RWMutex
	seq     *idgen.Sequence
	byID    map[string]Customer
	ordered []string
}

func NewDirectory() *Directory {
	return &Directory{
		seq:  idgen.NewSequence("CUS"),
		byID: make(map[string]Customer),
	}
}

// Create 分配客户编号并登记
func (d *Directory) Create(name string, age int, contact, address string, typ Type) Customer {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.seq.Next()
	for d.taken(id) {
		id = d.seq.Next()
	}
	c := Customer{ID: id, Name: name, Age: age, Contact: contact, Address: address, Type: typ}
	d.storeLocked(c)
	return c
}

// Register 登记已有编号的客户（从持久化恢复时使用）
func (d *Directory) Register(c Customer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byID[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCustomer, c.ID)
	}
	d.seq.Observe(c.ID)
	d.storeLocked(c)
	return nil
}

func (d *Directory) taken(id string) bool {
	_, ok := d.byID[id]
	return ok
}

func (d *Directory) storeLocked(c Customer) {
	d.byID[c.ID] = c
	d.ordered = append(d.ordered, c.ID)
}

func (d *Directory) Find(id string) (Customer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byID[id]
	return c, ok
}

// Get 与 Find 相同，但缺失时返回 ErrCustomerNotFound
func (d *Directory) Get(id string) (Customer, error) {
	c, ok := d.Find(id)
	if !ok {
		return Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	return c, nil
}

// List 按登记顺序
func (d *Directory) List() []Customer {
	return d.filter(func(Customer) bool { return true })
}

// SearchByName 姓名子串匹配，大小写不敏感
func (d *Directory) SearchByName(query string) []Customer {
	q := strings.ToLower(query)
	return d.filter(func(c Customer) bool {
		return strings.Contains(strings.ToLower(c.Name), q)
	})
}

func (d *Directory) ByType(typ Type) []Customer {
	return d.filter(func(c Customer) bool { return c.Type == typ })
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.ordered)
}

func (d *Directory) filter(keep func(Customer) bool) []Customer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Customer, 0, len(d.ordered))
	for _, id := range d.ordered {
		if c := d.byID[id]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}
