// Package flatfile 以管道符分隔的文本文件保存/恢复账本。
//
// 三个文件：customers.txt、accounts.txt、transactions.txt，每行一条记录。
// 恢复时重新调用客户目录和账本的构造接口，不直接写内存结构。
package flatfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"corebank/internal/customer"
	"corebank/internal/ledger"
)

const (
	CustomersFile    = "customers.txt"
	AccountsFile     = "accounts.txt"
	TransactionsFile = "transactions.txt"
)

// Counts 每类记录的条数
type Counts struct {
	Customers    int `json:"customers"`
	Accounts     int `json:"accounts"`
	Transactions int `json:"transactions"`
}

type Store struct {
	dir string
	loc *time.Location
}

// NewStore 流水时间只有分钟精度且不带时区，按 time.Local 解析
func NewStore(dir string) *Store {
	return &Store{dir: dir, loc: time.Local}
}

func (s *Store) Dir() string { return s.dir }

// Exists 任意一个数据文件存在即返回 true
func (s *Store) Exists() bool {
	for _, name := range []string{CustomersFile, AccountsFile, TransactionsFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return true
		}
	}
	return false
}

// ==================== 保存 ====================

// Save 全量写出；每个文件先写 .tmp 再 rename，写到一半失败不会破坏旧文件
func (s *Store) Save(dir *customer.Directory, l *ledger.Ledger) (Counts, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Counts{}, fmt.Errorf("创建数据目录失败: %w", err)
	}

	var counts Counts

	customers := dir.List()
	if err := s.writeFile(CustomersFile, len(customers), func(i int) []string {
		return customerRecord(customers[i])
	}); err != nil {
		return counts, err
	}
	counts.Customers = len(customers)

	accounts := l.Registry().Snapshot()
	if err := s.writeFile(AccountsFile, len(accounts), func(i int) []string {
		return accountRecord(accounts[i])
	}); err != nil {
		return counts, err
	}
	counts.Accounts = len(accounts)

	entries := l.Entries()
	if err := s.writeFile(TransactionsFile, len(entries), func(i int) []string {
		return transactionRecord(entries[i])
	}); err != nil {
		return counts, err
	}
	counts.Transactions = len(entries)

	log.Printf("[FlatFile] 保存完成: dir=%s, customers=%d, accounts=%d, transactions=%d",
		s.dir, counts.Customers, counts.Accounts, counts.Transactions)
	return counts, nil
}

func (s *Store) writeFile(name string, n int, record func(i int) []string) error {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	w := newWriter(f)
	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			f.Close()
			return fmt.Errorf("写入 %s 失败: %w", name, err)
		}
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	return os.Rename(tmp, path)
}

// ==================== 恢复 ====================

// Load 按 客户 -> 账户 -> 流水 的顺序恢复，格式错误或引用缺失的行跳过并记日志
func (s *Store) Load(dir *customer.Directory, l *ledger.Ledger) (Counts, error) {
	var counts Counts

	err := s.readFile(CustomersFile, func(rec []string) error {
		c, err := parseCustomer(rec)
		if err != nil {
			return err
		}
		if err := dir.Register(c); err != nil {
			return err
		}
		counts.Customers++
		return nil
	})
	if err != nil {
		return counts, err
	}

	err = s.readFile(AccountsFile, func(rec []string) error {
		st, err := parseAccount(rec)
		if err != nil {
			return err
		}
		c, err := dir.Get(st.Owner.ID)
		if err != nil {
			return fmt.Errorf("账户 %s: %w", st.Number, err)
		}
		st.Owner = c.Ref()
		if _, err := l.Restore(st); err != nil {
			return err
		}
		counts.Accounts++
		return nil
	})
	if err != nil {
		return counts, err
	}

	err = s.readFile(TransactionsFile, func(rec []string) error {
		e, err := parseTransaction(rec, s.loc)
		if err != nil {
			return err
		}
		if _, err := l.Replay(e); err != nil {
			return err
		}
		counts.Transactions++
		return nil
	})
	if err != nil {
		return counts, err
	}

	log.Printf("[FlatFile] 加载完成: dir=%s, customers=%d, accounts=%d, transactions=%d",
		s.dir, counts.Customers, counts.Accounts, counts.Transactions)
	return counts, nil
}

// readFile 文件不存在视为空；apply 返回的错误只跳过当前行
func (s *Store) readFile(name string, apply func(rec []string) error) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", name, err)
	}
	defer f.Close()

	r := newReader(f)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			log.Printf("[FlatFile] 跳过无法解析的行: file=%s, err=%v", name, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("读取 %s 失败: %w", name, err)
		}
		if err := apply(rec); err != nil {
			line, _ := r.FieldPos(0)
			log.Printf("[FlatFile] 跳过第 %d 行: file=%s, err=%v", line, name, err)
		}
	}
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '|'
	return cw
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
