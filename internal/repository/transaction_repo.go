package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corebank/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// InsertMissing 按流水号去重插入，已存在的流水保持不变；返回新插入的条数
func (r *TransactionRepository) InsertMissing(ctx context.Context, tx *gorm.DB, rows []model.LedgerTransaction) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_no"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 500)
	return result.RowsAffected, result.Error
}

func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.LedgerTransaction{}).Count(&total).Error
	return total, err
}

// List 全部流水，按写入顺序
func (r *TransactionRepository) List(ctx context.Context) ([]model.LedgerTransaction, error) {
	var rows []model.LedgerTransaction
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}
