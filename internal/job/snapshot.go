package job

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"corebank/internal/customer"
	"corebank/internal/infrastructure/lock"
	"corebank/internal/ledger"
	"corebank/internal/model"
	"corebank/internal/observability"
	"corebank/internal/repository"
)

// SnapshotJob 定期把内存账本写入 MySQL 快照表
//
// 账户按账户号 upsert；流水只追加，用 written 记录已写入的日志长度，
// 每次只写新增部分（按流水号去重，重复写入无副作用）。
// 配置了 Redis 时先抢分布式锁，抢不到本轮跳过。
type SnapshotJob struct {
	db          *gorm.DB
	ledger      *ledger.Ledger
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	lock        *lock.DistributedLock
	metrics     *observability.Metrics
	stopCh      chan struct{}
	interval    time.Duration

	mu      sync.Mutex // 串行化 RunOnce，保护 written
	written int
}

// NewSnapshotJob snapshotLock 可以为 nil（单实例部署）
func NewSnapshotJob(db *gorm.DB, l *ledger.Ledger, snapshotLock *lock.DistributedLock,
	metrics *observability.Metrics, interval time.Duration) *SnapshotJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SnapshotJob{
		db:          db,
		ledger:      l,
		accountRepo: repository.NewAccountRepository(db),
		txRepo:      repository.NewTransactionRepository(db),
		lock:        snapshotLock,
		metrics:     metrics,
		stopCh:      make(chan struct{}),
		interval:    interval,
	}
}

func (j *SnapshotJob) Start(ctx context.Context) {
	log.Println("[SnapshotJob] 快照任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[SnapshotJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[SnapshotJob] 任务停止")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				log.Printf("[SnapshotJob] 写入快照失败: %v", err)
			}
		}
	}
}

func (j *SnapshotJob) Stop() {
	close(j.stopCh)
}

// RunOnce 写一次快照；返回 false 表示没抢到锁、本轮跳过
func (j *SnapshotJob) RunOnce(ctx context.Context) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.lock != nil {
		ok, err := j.lock.TryLock(ctx)
		if err != nil {
			j.metrics.ObserveSnapshot("error")
			return false, fmt.Errorf("获取快照锁失败: %w", err)
		}
		if !ok {
			j.metrics.ObserveSnapshot("skipped")
			return false, nil
		}
		defer func() {
			if err := j.lock.Unlock(ctx); err != nil {
				log.Printf("[SnapshotJob] 释放快照锁失败: %v", err)
			}
		}()
	}

	states := j.ledger.Registry().Snapshot()
	entries := j.ledger.Entries()
	if j.written > len(entries) {
		j.written = 0
	}
	fresh := entries[j.written:]

	accounts := make([]model.LedgerAccount, len(states))
	for i, st := range states {
		accounts[i] = model.NewLedgerAccount(st)
	}
	rows := make([]model.LedgerTransaction, len(fresh))
	for i, e := range fresh {
		rows[i] = model.NewLedgerTransaction(e)
	}

	var inserted int64
	err := j.db.Transaction(func(tx *gorm.DB) error {
		if err := j.accountRepo.Upsert(ctx, tx, accounts); err != nil {
			return fmt.Errorf("写入账户快照失败: %w", err)
		}
		n, err := j.txRepo.InsertMissing(ctx, tx, rows)
		if err != nil {
			return fmt.Errorf("写入流水快照失败: %w", err)
		}
		inserted = n
		return nil
	})
	if err != nil {
		j.metrics.ObserveSnapshot("error")
		return false, err
	}

	j.written = len(entries)
	j.metrics.ObserveSnapshot("ok")
	if inserted > 0 {
		log.Printf("[SnapshotJob] 快照完成: accounts=%d, new_transactions=%d", len(accounts), inserted)
	}
	return true, nil
}

// Restore 从快照表恢复账本，应在对外服务之前调用
//
// 快照表里只有客户编号和姓名，目录里没有的客户按普通客户补登记。
// 只回放本次恢复成功的账户的流水：账本里已有的账户连同其流水都以账本为准。
func (j *SnapshotJob) Restore(ctx context.Context, dir *customer.Directory) (int, int, error) {
	accounts, err := j.accountRepo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("读取账户快照失败: %w", err)
	}
	rows, err := j.txRepo.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("读取流水快照失败: %w", err)
	}

	restored := make(map[string]struct{}, len(accounts))
	for _, row := range accounts {
		st, err := row.State()
		if err != nil {
			log.Printf("[SnapshotJob] 跳过账户 %s: %v", row.AccountNumber, err)
			continue
		}
		if _, ok := dir.Find(st.Owner.ID); !ok {
			_ = dir.Register(customer.Customer{ID: st.Owner.ID, Name: st.Owner.Name, Type: customer.TypeRegular})
		}
		if _, err := j.ledger.Restore(st); err != nil {
			log.Printf("[SnapshotJob] 跳过账户 %s: %v", row.AccountNumber, err)
			continue
		}
		restored[st.Number] = struct{}{}
	}

	replayed, skipped := 0, 0
	for _, row := range rows {
		if _, ok := restored[row.AccountNumber]; !ok {
			skipped++
			continue
		}
		e, err := row.Entry()
		if err == nil {
			_, err = j.ledger.Replay(e)
		}
		if err != nil {
			log.Printf("[SnapshotJob] 跳过流水 %s: %v", row.TransactionNo, err)
			continue
		}
		replayed++
	}

	// 恢复出来的流水已经在库里
	j.mu.Lock()
	j.written = j.ledger.Log().Len()
	j.mu.Unlock()
	log.Printf("[SnapshotJob] 从快照恢复: accounts=%d, transactions=%d, skipped=%d", len(restored), replayed, skipped)
	return len(restored), replayed, nil
}
