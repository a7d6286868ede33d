package job

import (
	"context"
	"log"
	"time"

	"corebank/internal/model"
	"corebank/internal/observability"
	"corebank/internal/repository"
)

// MessageSender *mq.Producer 实现该接口
type MessageSender interface {
	SendMessage(topic, key, value string) (int32, int64, error)
}

// OutboxSender 把本地消息表里的流水事件投递到 Kafka
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	sender     MessageSender
	metrics    *observability.Metrics
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
	maxRetry   int
}

func NewOutboxSender(outboxRepo *repository.OutboxRepository, sender MessageSender, metrics *observability.Metrics,
	interval time.Duration, batchSize, maxRetry int) *OutboxSender {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetry <= 0 {
		maxRetry = 1
	}
	return &OutboxSender{
		outboxRepo: outboxRepo,
		sender:     sender,
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  batchSize,
		maxRetry:   maxRetry,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending 处理一批待发送消息，返回发送成功的条数
//
// 同一账户的消息必须按顺序投递：某个 key 发送失败后，本批次里该 key 后面的消息跳过，下一轮再发。
func (s *OutboxSender) ProcessPending(ctx context.Context) int {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询消息失败: %v", err)
		return 0
	}

	sent := 0
	blocked := make(map[string]bool)
	for _, msg := range messages {
		if blocked[msg.MessageKey] {
			continue
		}
		if s.sendMessage(ctx, msg) {
			sent++
			continue
		}
		blocked[msg.MessageKey] = true
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	_, _, err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] 更新消息状态失败: id=%d, err=%v", msg.ID, updateErr)
		}
		s.metrics.ObserveOutbox("sent")
		return true
	}

	log.Printf("[OutboxSender] 消息发送失败: id=%d, key=%s, err=%v", msg.ID, msg.MessageKey, err)

	failed, updateErr := s.outboxRepo.RecordFailure(ctx, msg, s.maxRetry)
	if updateErr != nil {
		log.Printf("[OutboxSender] 记录发送失败出错: id=%d, err=%v", msg.ID, updateErr)
		return false
	}
	if failed {
		log.Printf("[OutboxSender] 消息超过最大重试次数，标记为失败: id=%d", msg.ID)
		s.metrics.ObserveOutbox("failed")
	} else {
		s.metrics.ObserveOutbox("retry")
	}
	return false
}
