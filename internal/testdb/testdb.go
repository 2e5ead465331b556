package testdb

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/slotworks/bookpay/internal/migration"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open returns an isolated in-memory database carrying the full schema,
// including the partial unique indexes the production migrations create.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// A shared-cache memory database lives as long as one connection does.
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migration.Bootstrap(conn); err != nil {
		t.Fatalf("bootstrap schema: %v", err)
	}
	return conn
}
