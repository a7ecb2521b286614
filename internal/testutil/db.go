package testutil

import (
	"fmt"
	"testing"

	"raffle/internal/config"
	"raffle/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewDB opens a migrated, private in-memory SQLite database with foreign keys enforced.
//
// Each call gets its own database name so tests never share rows.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.DatabaseURL = fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := store.Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// NewStore returns a Store over a fresh database from NewDB.
func NewStore(t testing.TB) store.Store {
	t.Helper()
	return store.New(NewDB(t))
}
