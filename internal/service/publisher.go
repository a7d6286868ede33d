package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"corebank/internal/ledger"
	"corebank/internal/model"
	"corebank/internal/observability"
	"corebank/internal/repository"
)

// ErrInvalidParam 请求参数无法解析（未知的账户类型、状态、客户类型）
var ErrInvalidParam = errors.New("service: 参数错误")

// EntryPublisher 流水事件出口；为 nil 时不发布
type EntryPublisher interface {
	Publish(ctx context.Context, entries ...ledger.Entry) error
}

// OutboxPublisher 每条流水写一条 outbox_message，由 OutboxSender 投递到 Kafka
type OutboxPublisher struct {
	outboxRepo *repository.OutboxRepository
	topic      string
}

func NewOutboxPublisher(outboxRepo *repository.OutboxRepository, topic string) *OutboxPublisher {
	return &OutboxPublisher{outboxRepo: outboxRepo, topic: topic}
}

func (p *OutboxPublisher) Publish(ctx context.Context, entries ...ledger.Entry) error {
	msgs := make([]*model.OutboxMessage, 0, len(entries))
	for _, e := range entries {
		msg, err := model.NewLedgerEntryMessage(p.topic, e)
		if err != nil {
			return fmt.Errorf("序列化流水 %s 失败: %w", e.ID, err)
		}
		msgs = append(msgs, msg)
	}
	if err := p.outboxRepo.Create(ctx, nil, msgs...); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}

// PublishHook 把发布器包装成账本的追加回调
//
// 回调在账户锁内执行，同一账户的 outbox_message 按流水号顺序写入，
// 对应的自增 id 也保持同样的顺序。流水已经记入内存账本，发布失败只记日志，不回滚。
func PublishHook(p EntryPublisher, timeout time.Duration) ledger.AppendHook {
	return func(entries []ledger.Entry) {
		if p == nil || len(entries) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.Publish(ctx, entries...); err != nil {
			log.Printf("[Publisher] 发布流水事件失败: first=%s, err=%v", entries[0].ID, err)
		}
	}
}

// errorKind 错误分类，用作指标标签
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ledger.ErrAccountClosed):
		return "closed"
	case errors.Is(err, ledger.ErrSameAccount):
		return "same_account"
	case errors.Is(err, ledger.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "error"
	}
}

func observe(m *observability.Metrics, op string, err error) {
	m.ObserveLedgerOp(op, errorKind(err))
}
