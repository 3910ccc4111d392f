package testutil

import (
	"testing"

	"notes-go/internal/database"
	"notes-go/internal/database/migrations"
)

// NewTestSQLiteStorage creates an in-memory SQLite storage with migrations applied.
// The database is automatically closed when the test completes.
func NewTestSQLiteStorage(t *testing.T) *database.SQLiteStorage {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := migrations.MigrateUp(sqlDB); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	s := database.NewSQLiteStorageFromDB(sqlDB)

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
