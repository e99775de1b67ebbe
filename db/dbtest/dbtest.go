// Package dbtest hands out throwaway in-memory databases for tests
package dbtest

import (
	"bitwise74/blog-api/db"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns a migrated in-memory sqlite database private to the test.
// It is closed when the test finishes.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	g, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("failed to open test database, %v", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle, %v", err)
	}

	// One connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(g); err != nil {
		t.Fatal(err)
	}

	return g
}
