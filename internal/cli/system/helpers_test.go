package system

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitlog/internal/auth"
	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage/sqlite"
	"github.com/julianstephens/habitlog/internal/utils"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// newTestContext wires a context over an uninitialized SQLite store
func newTestContext(t *testing.T, dbPath string) *cli.Context {
	t.Helper()
	ctx := cli.NewContext(sqlite.NewStore(dbPath), auth.Session{UserID: "alice"}, utils.FixedClock(testNow))
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

// setupTestDB returns a context over an initialized database
func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	ctx := newTestContext(t, filepath.Join(t.TempDir(), "test.db"))
	if err := ctx.Store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	return ctx
}

func addHabit(t *testing.T, ctx *cli.Context, name string) models.Habit {
	t.Helper()
	h, err := ctx.Habits.CreateHabit(context.Background(), "alice", models.CreateHabit{Name: name})
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	return h
}

// corruptStreak overwrites a habit's cached streak behind the service
func corruptStreak(t *testing.T, ctx *cli.Context, id string, streak int) {
	t.Helper()
	bg := context.Background()
	h, err := ctx.Store.GetHabit(bg, id)
	if err != nil {
		t.Fatalf("failed to get habit: %v", err)
	}
	h.Streak = streak
	if err := ctx.Store.PutHabit(bg, h); err != nil {
		t.Fatalf("failed to put habit: %v", err)
	}
}
