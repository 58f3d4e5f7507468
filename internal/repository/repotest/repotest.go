// Package repotest opens throwaway in-memory databases for tests.
package repotest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Fi44er/roi_ledger/db"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewDB returns a migrated SQLite database private to t. The pool is pinned
// to one connection, so concurrent callers serialize the way row locks would
// serialize them on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared&_busy_timeout=5000", seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb, true, utils.DiscardLogger()))
	return gdb
}
