package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"corebank/internal/model"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create 批量写入消息，一次转账的两条流水在同一个事务里落库
func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, msgs ...*model.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msgs).Error
}

// GetPendingMessages 按写入顺序取待发送消息
//
// 同一 key 前面还有 FAILED 消息时，后面的消息不取出，等补偿任务把失败消息
// 放回队列后按原 id 顺序一起发送，保证同一账户的事件不乱序。
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM outbox_message AS f WHERE f.message_key = outbox_message.message_key AND f.status = ? AND f.id < outbox_message.id)",
			model.OutboxStatusFailed).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkAsSent(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", model.OutboxStatusSent).Error
}

// RecordFailure 重试次数加一，达到 maxRetry 时标记为 FAILED；返回是否已标记失败
func (r *OutboxRepository) RecordFailure(ctx context.Context, msg *model.OutboxMessage, maxRetry int) (bool, error) {
	updates := map[string]interface{}{
		"retry_count": gorm.Expr("retry_count + 1"),
	}
	failed := msg.RetryCount+1 >= maxRetry
	if failed {
		updates["status"] = model.OutboxStatusFailed
	}
	err := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ?", msg.ID).
		Updates(updates).Error
	return failed, err
}

// Requeue 把 FAILED 消息放回待发送队列
func (r *OutboxRepository) Requeue(ctx context.Context, ids ...int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id IN ? AND status = ?", ids, model.OutboxStatusFailed).
		Updates(map[string]interface{}{
			"status":      model.OutboxStatusPending,
			"retry_count": 0,
		})
	return result.RowsAffected, result.Error
}

// GetFailedMessages 取最后一次失败早于 before 的 FAILED 消息
func (r *OutboxRepository) GetFailedMessages(ctx context.Context, before time.Time, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.OutboxStatusFailed, before).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// CountByStatus 各状态消息数
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}
