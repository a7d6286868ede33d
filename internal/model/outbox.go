package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"corebank/internal/ledger"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 本地消息表，由 OutboxSender 投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);index;not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// LedgerEntryEvent 流水事件
type LedgerEntryEvent struct {
	EventID string       `json:"event_id"`
	Entry   ledger.Entry `json:"entry"`
}

// NewLedgerEntryMessage 以账户号作为消息 key，同一账户的流水落在同一分区，保持顺序
func NewLedgerEntryMessage(topic string, e ledger.Entry) (*OutboxMessage, error) {
	payload, err := json.Marshal(LedgerEntryEvent{
		EventID: uuid.NewString(),
		Entry:   e,
	})
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: e.Account,
		Topic:      topic,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
	}, nil
}
