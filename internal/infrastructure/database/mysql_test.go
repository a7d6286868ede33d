package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"corebank/internal/model"
)

func TestAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))
	// 重复迁移不报错
	require.NoError(t, AutoMigrate(db))

	m := db.Migrator()
	assert.True(t, m.HasTable(&model.LedgerAccount{}))
	assert.True(t, m.HasTable("ledger_transaction"))
	assert.True(t, m.HasTable("outbox_message"))
	assert.True(t, m.HasIndex(&model.LedgerTransaction{}, "TransactionNo"))
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, LogLevel("silent"))
	assert.Equal(t, logger.Info, LogLevel("INFO"))
	assert.Equal(t, logger.Error, LogLevel("error"))
	assert.Equal(t, logger.Warn, LogLevel(""))
}
