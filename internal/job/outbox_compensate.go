package job

import (
	"context"
	"log"
	"time"

	"corebank/internal/observability"
	"corebank/internal/repository"
)

// OutboxCompensateJob 把重试耗尽的消息在冷却期后放回待发送队列
//
// Kafka 长时间不可用时消息会被标记为 FAILED；恢复后由本任务重新投递，
// 不需要人工介入。冷却期内的失败消息不动，避免与发送任务来回抢。
type OutboxCompensateJob struct {
	outboxRepo *repository.OutboxRepository
	metrics    *observability.Metrics
	stopCh     chan struct{}
	interval   time.Duration
	cooldown   time.Duration
	batchSize  int
	now        func() time.Time
}

func NewOutboxCompensateJob(outboxRepo *repository.OutboxRepository, metrics *observability.Metrics,
	interval, cooldown time.Duration, batchSize int) *OutboxCompensateJob {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxCompensateJob{
		outboxRepo: outboxRepo,
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		interval:   interval,
		cooldown:   cooldown,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

func (j *OutboxCompensateJob) Start(ctx context.Context) {
	log.Println("[OutboxCompensateJob] 补偿任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxCompensateJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[OutboxCompensateJob] 任务停止")
			return
		case <-ticker.C:
			j.RequeueFailed(ctx)
		}
	}
}

func (j *OutboxCompensateJob) Stop() {
	close(j.stopCh)
}

// RequeueFailed 返回放回队列的消息数
func (j *OutboxCompensateJob) RequeueFailed(ctx context.Context) int64 {
	messages, err := j.outboxRepo.GetFailedMessages(ctx, j.now().Add(-j.cooldown), j.batchSize)
	if err != nil {
		log.Printf("[OutboxCompensateJob] 查询失败消息失败: %v", err)
		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	log.Printf("[OutboxCompensateJob] 发现 %d 条需要补偿的消息", len(messages))

	ids := make([]int64, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID
	}
	n, err := j.outboxRepo.Requeue(ctx, ids...)
	if err != nil {
		log.Printf("[OutboxCompensateJob] 重新入队失败: %v", err)
		return 0
	}
	j.metrics.AddOutbox("requeued", n)
	log.Printf("[OutboxCompensateJob] 补偿成功，%d 条消息已重新入队", n)
	return n
}
