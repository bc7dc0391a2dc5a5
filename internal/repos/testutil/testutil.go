// Package testutil wires a throwaway database for repository tests.
// Set TEST_POSTGRES_DSN to run against a real Postgres instance;
// without it the tests fall back to an in-memory SQLite database.
package testutil

import (
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/taskhive/taskhive-backend/internal/db"
	"github.com/taskhive/taskhive-backend/internal/platform/logger"
)

func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return log
}

// DB opens a migrated database and cleans it up when the test ends.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &gorm.Config{
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var (
		gdb *gorm.DB
		err error
	)
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		gdb, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		gdb, err = gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), cfg)
	}
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() {
		gdb.Exec(`DELETE FROM "user_token"`)
		gdb.Exec(`DELETE FROM "profile"`)
		gdb.Exec(`DELETE FROM "user"`)
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}
