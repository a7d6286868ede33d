package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 多个实例共用一个 MySQL 快照库时，同一时刻只允许一个实例写快照。
//
// 加锁：SET key value NX EX timeout
//   - NX: key 不存在才设置（互斥）
//   - EX: 过期时间（持有者崩溃后自动释放）
//   - value: 持有者标识，释放/续期时校验，避免误删别人的锁
//
// 释放、续期都用 Lua 脚本，"检查 value + 操作" 是原子的。
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
	ErrNotHeld    = errors.New("锁已过期或被其他实例持有")
)

const snapshotLockKey = "ledger:snapshot:lock"

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 持有者标识
	expiration time.Duration // 过期时间
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// NewSnapshotLock 快照写入锁，每个进程用随机 uuid 作为持有者标识
func NewSnapshotLock(client *redis.Client, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, snapshotLockKey, uuid.NewString(), expiration)
}

func (l *DistributedLock) Key() string   { return l.key }
func (l *DistributedLock) Value() string { return l.value }

// TryLock 非阻塞
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁，最多重试 maxRetries 次
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Refresh 续期；锁已不属于自己时返回 ErrNotHeld
func (l *DistributedLock) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.value, l.expiration.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Unlock 只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}
