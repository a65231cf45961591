package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage"
	"github.com/julianstephens/habitlog/internal/storage/postgres"
	"github.com/julianstephens/habitlog/internal/storage/storagetest"
)

// TestStore_Integration runs the shared store suite against a real database.
// Set POSTGRES_TEST_URL to run it, for example
// POSTGRES_TEST_URL="postgres://habitlog@localhost:5432/habitlog_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	storagetest.Run(t, func(t *testing.T) storage.Provider {
		store := postgres.New(connStr)
		if err := store.Init(); err != nil {
			t.Fatalf("Failed to initialize store: %v", err)
		}
		db := store.GetDB()
		for _, table := range []string{"habit_logs", "habits", "settings"} {
			if _, err := db.ExecContext(context.Background(), "TRUNCATE "+constants.AppName+"."+table); err != nil {
				t.Fatalf("failed to truncate %s: %v", table, err)
			}
		}
		// Truncation removed the defaults written by Init
		if err := store.SaveSettings(models.DefaultSettings()); err != nil {
			t.Fatalf("Failed to restore default settings: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}
