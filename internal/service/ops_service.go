package service

import (
	"context"
	"fmt"

	"corebank/internal/repository"
)

// OpsService MySQL 快照与本地消息表的运行状态
type OpsService struct {
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	outboxRepo  *repository.OutboxRepository
}

func NewOpsService(accountRepo *repository.AccountRepository, txRepo *repository.TransactionRepository,
	outboxRepo *repository.OutboxRepository) *OpsService {
	return &OpsService{accountRepo: accountRepo, txRepo: txRepo, outboxRepo: outboxRepo}
}

type PersistenceStatus struct {
	Enabled              bool             `json:"enabled"`
	SnapshotAccounts     int64            `json:"snapshot_accounts"`
	SnapshotTransactions int64            `json:"snapshot_transactions"`
	Outbox               map[string]int64 `json:"outbox"`
}

// Status s 为 nil 表示未开启 MySQL
func (s *OpsService) Status(ctx context.Context) (*PersistenceStatus, error) {
	if s == nil {
		return &PersistenceStatus{}, nil
	}
	accounts, err := s.accountRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计账户快照失败: %w", err)
	}
	txs, err := s.txRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计流水快照失败: %w", err)
	}
	outbox, err := s.outboxRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计消息表失败: %w", err)
	}
	return &PersistenceStatus{
		Enabled:              true,
		SnapshotAccounts:     accounts,
		SnapshotTransactions: txs,
		Outbox:               outbox,
	}, nil
}
