package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 请求幂等
// ============================================================================
//
// 同一个 request_id 只执行一次：
//   1. Reserve: SET key "PENDING" NX EX ttl，抢到的请求才执行业务
//   2. 成功后 Complete 写入结果，重复请求直接读结果返回
//   3. 失败后 Release 删除 key，调用方可以用同一个 request_id 重试
//
// ============================================================================

const pendingMarker = "PENDING"

var ErrRequestInProgress = errors.New("cache: 相同请求正在处理中")

type IdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyStore prefix 形如 "ledger:transfer:req:"
func NewIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *IdempotencyStore) key(requestID string) string {
	return s.prefix + requestID
}

// Lookup 读取已完成请求的结果；found=false 表示没有记录
// 请求仍在处理中时返回 ErrRequestInProgress
func (s *IdempotencyStore) Lookup(ctx context.Context, requestID string, dst interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, s.key(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if raw == pendingMarker {
		return false, ErrRequestInProgress
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("解析幂等结果失败: %w", err)
	}
	return true, nil
}

// Reserve 占位，返回 false 表示已有同 ID 的请求
func (s *IdempotencyStore) Reserve(ctx context.Context, requestID string) (bool, error) {
	return s.client.SetNX(ctx, s.key(requestID), pendingMarker, s.ttl).Result()
}

// Complete 写入结果，覆盖占位
func (s *IdempotencyStore) Complete(ctx context.Context, requestID string, result interface{}) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(requestID), raw, s.ttl).Err()
}

// Release 删除占位
func (s *IdempotencyStore) Release(ctx context.Context, requestID string) error {
	return s.client.Del(ctx, s.key(requestID)).Err()
}
