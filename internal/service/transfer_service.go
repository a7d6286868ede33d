package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"corebank/internal/infrastructure/cache"
	"corebank/internal/ledger"
	"corebank/internal/observability"
)

var ErrRequestInProgress = cache.ErrRequestInProgress

// IdempotencyStore *cache.IdempotencyStore 实现该接口
type IdempotencyStore interface {
	Lookup(ctx context.Context, requestID string, dst interface{}) (bool, error)
	Reserve(ctx context.Context, requestID string) (bool, error)
	Complete(ctx context.Context, requestID string, result interface{}) error
	Release(ctx context.Context, requestID string) error
}

type TransferService struct {
	ledger    *ledger.Ledger
	idem    IdempotencyStore
	metrics *observability.Metrics
}

// NewTransferService idem 为 nil 时不做请求去重
func NewTransferService(l *ledger.Ledger, idem IdempotencyStore, metrics *observability.Metrics) *TransferService {
	return &TransferService{
		ledger:  l,
		idem:    idem,
		metrics: metrics,
	}
}

type TransferRequest struct {
	RequestID string          `json:"request_id" binding:"omitempty,max=64"`
	From      string          `json:"from" binding:"required"`
	To        string          `json:"to" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type TransferResponse struct {
	ledger.TransferReceipt
	Replayed bool `json:"replayed"`
}

// Transfer 带 request_id 的请求只执行一次，重复请求直接返回第一次的结果
func (s *TransferService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	dedup := req.RequestID != "" && s.idem != nil

	if dedup {
		var cached ledger.TransferReceipt
		found, err := s.idem.Lookup(ctx, req.RequestID, &cached)
		if err != nil {
			return nil, err
		}
		if found {
			return &TransferResponse{TransferReceipt: cached, Replayed: true}, nil
		}
		ok, err := s.idem.Reserve(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("幂等占位失败: %w", err)
		}
		if !ok {
			return nil, ErrRequestInProgress
		}
	}

	receipt, err := s.ledger.Transfer(req.From, req.To, req.Amount)
	observe(s.metrics, "transfer", err)
	if err != nil {
		if dedup {
			// 失败的请求允许用同一个 request_id 重试
			if relErr := s.idem.Release(ctx, req.RequestID); relErr != nil {
				log.Printf("[Transfer] 释放幂等占位失败: requestID=%s, err=%v", req.RequestID, relErr)
			}
		}
		return nil, err
	}

	if dedup {
		if err := s.idem.Complete(ctx, req.RequestID, receipt); err != nil {
			log.Printf("[Transfer] 保存幂等结果失败: requestID=%s, err=%v", req.RequestID, err)
		}
	}

	log.Printf("[Transfer] 转账成功: %s -> %s, amount=%s, out=%s, in=%s",
		req.From, req.To, req.Amount.StringFixed(2), receipt.Out.ID, receipt.In.ID)
	return &TransferResponse{TransferReceipt: receipt}, nil
}

// IsRetryable 只有"请求处理中"值得客户端原样重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRequestInProgress)
}
