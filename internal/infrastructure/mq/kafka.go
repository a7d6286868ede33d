package mq

import (
	"fmt"
	"log"

	"github.com/IBM/sarama"

	"corebank/internal/config"
)

// Producer Kafka 同步生产者的薄封装
type Producer struct {
	producer sarama.SyncProducer
}

// NewProducer 测试里传入 sarama/mocks 的 SyncProducer
func NewProducer(p sarama.SyncProducer) *Producer {
	return &Producer{producer: p}
}

// SaramaConfig 生产者配置：所有副本确认、按 key 哈希分区
func SaramaConfig() *sarama.Config {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll // 等待所有副本确认
	kafkaConfig.Producer.Retry.Max = 3                    // 重试次数
	kafkaConfig.Producer.Return.Successes = true          // 返回成功消息
	kafkaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return kafkaConfig
}

// InitKafka 初始化 Kafka 生产者
func InitKafka(cfg *config.KafkaConfig) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	log.Println("Kafka 生产者创建成功")
	return NewProducer(producer), nil
}

// SendMessage 发送一条消息，返回写入的分区和位点
func (p *Producer) SendMessage(topic, key, value string) (int32, int64, error) {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	return p.producer.SendMessage(msg)
}

// Close 关闭 Kafka 生产者
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
