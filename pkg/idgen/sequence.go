package idgen

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// ============================================================================
// 业务编号序列
// ============================================================================
//
// 【为什么不用全局计数器？】
//
// 账户号、流水号、客户号都要求：
//   1. 单调递增 - ACC001, ACC002 ...
//   2. 并发安全 - 多个 goroutine 同时开户/记账不能拿到重复编号
//   3. 实例隔离 - 每个账本/注册表持有自己的序列，测试之间互不干扰
//
// 编号格式：前缀 + 至少3位的十进制序号，例如 TXN007、ACC1024
//
// ============================================================================

// Sequence 带前缀的单调序列
type Sequence struct {
	prefix string
	n      atomic.Int64
}

// NewSequence 创建从 0 开始的序列，第一次 Next 返回 prefix+"001"
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// Next 生成下一个编号
func (s *Sequence) Next() string {
	return s.Format(s.n.Add(1))
}

// Format 按序列格式渲染序号
func (s *Sequence) Format(n int64) string {
	return fmt.Sprintf("%s%03d", s.prefix, n)
}

// Current 当前已发放的最大序号
func (s *Sequence) Current() int64 {
	return s.n.Load()
}

// Prefix 序列前缀
func (s *Sequence) Prefix() string {
	return s.prefix
}

// Observe 登记一个外部产生的编号（例如从文件恢复），保证后续 Next 不会与之冲突
//
// 编号前缀不匹配或序号无法解析时返回 false，序列不变。
func (s *Sequence) Observe(id string) bool {
	if !strings.HasPrefix(id, s.prefix) {
		return false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, s.prefix), 10, 64)
	if err != nil || n <= 0 {
		return false
	}
	for {
		cur := s.n.Load()
		if n <= cur {
			return true
		}
		if s.n.CompareAndSwap(cur, n) {
			return true
		}
	}
}
