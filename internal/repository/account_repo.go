package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corebank/internal/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Upsert 按账户号写入快照，已存在则覆盖余额、状态和策略参数
func (r *AccountRepository) Upsert(ctx context.Context, tx *gorm.DB, accounts []model.LedgerAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"kind", "customer_id", "customer_name", "balance", "status",
				"interest_rate", "minimum_balance", "overdraft_limit", "monthly_fee", "updated_at",
			}),
		}).
		CreateInBatches(accounts, 200).Error
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.LedgerAccount{}).Count(&total).Error
	return total, err
}

// List 按账户号升序，即开户顺序
func (r *AccountRepository) List(ctx context.Context) ([]model.LedgerAccount, error) {
	var accounts []model.LedgerAccount
	err := r.db.WithContext(ctx).Order("account_number ASC").Find(&accounts).Error
	return accounts, err
}
