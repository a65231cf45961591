// Package storagetest holds a behavioural suite shared by every storage.Provider
// implementation. Each backend runs it against a freshly initialized store.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage"
)

// Run exercises habits, logs and settings against the store returned by newStore.
// newStore must return an initialized, empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Provider) {
	t.Helper()

	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
	t.Run("HabitRoundTrip", func(t *testing.T) { testHabitRoundTrip(t, newStore(t)) })
	t.Run("HabitsByUser", func(t *testing.T) { testHabitsByUser(t, newStore(t)) })
	t.Run("HabitNotFound", func(t *testing.T) { testHabitNotFound(t, newStore(t)) })
	t.Run("LogUniquePerDay", func(t *testing.T) { testLogUniquePerDay(t, newStore(t)) })
	t.Run("LogRange", func(t *testing.T) { testLogRange(t, newStore(t)) })
	t.Run("LogUpdateAndDelete", func(t *testing.T) { testLogUpdateAndDelete(t, newStore(t)) })
}

var base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func habit(id, userID string, created time.Time) models.Habit {
	return models.Habit{
		ID:        id,
		UserID:    userID,
		Name:      "Habit " + id,
		Goal:      "goal",
		Icon:      "*",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func logOn(id, habitID, day string) models.HabitLog {
	return models.HabitLog{
		ID:        id,
		HabitID:   habitID,
		Date:      day,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func testSettings(t *testing.T, s storage.Provider) {
	settings, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings != models.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", settings)
	}

	settings.Timezone = "America/New_York"
	settings.StatsWindowDays = 14
	settings.NotificationsEnabled = false
	if err := s.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, err := s.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != settings {
		t.Errorf("settings = %+v, want %+v", got, settings)
	}
}

func testHabitRoundTrip(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	h := habit("h1", "alice", base)
	if err := s.PutHabit(ctx, h); err != nil {
		t.Fatalf("PutHabit failed: %v", err)
	}

	got, err := s.GetHabit(ctx, "h1")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Name != h.Name || got.UserID != "alice" || got.IsDone || got.DoneAt != nil {
		t.Errorf("unexpected habit: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	doneAt := base.Add(time.Hour)
	h.Streak = 3
	h.IsDone = true
	h.DoneAt = &doneAt
	h.UpdatedAt = doneAt
	if err := s.PutHabit(ctx, h); err != nil {
		t.Fatalf("PutHabit (update) failed: %v", err)
	}

	got, err = s.GetHabit(ctx, "h1")
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Streak != 3 || !got.IsDone || got.DoneAt == nil || !got.DoneAt.Equal(doneAt) {
		t.Errorf("derived fields not persisted: %+v", got)
	}

	if err := s.DeleteHabit(ctx, "h1"); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	if _, err := s.GetHabit(ctx, "h1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func testHabitsByUser(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	for i, h := range []models.Habit{
		habit("a2", "alice", base.Add(2*time.Minute)),
		habit("b1", "bob", base),
		habit("a1", "alice", base.Add(time.Minute)),
	} {
		if err := s.PutHabit(ctx, h); err != nil {
			t.Fatalf("PutHabit %d failed: %v", i, err)
		}
	}

	habits, err := s.GetHabitsByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetHabitsByUser failed: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("expected 2 habits for alice, got %d", len(habits))
	}
	if habits[0].ID != "a1" || habits[1].ID != "a2" {
		t.Errorf("expected creation order [a1 a2], got [%s %s]", habits[0].ID, habits[1].ID)
	}

	none, err := s.GetHabitsByUser(ctx, "carol")
	if err != nil {
		t.Fatalf("GetHabitsByUser failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func testHabitNotFound(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	if _, err := s.GetHabit(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetHabit: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteHabit(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteHabit: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetLogByHabitAndDate(ctx, "missing", "2024-01-15"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetLogByHabitAndDate: expected ErrNotFound, got %v", err)
	}
}

func testLogUniquePerDay(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	if err := s.PutLog(ctx, logOn("l1", "h1", "2024-01-15")); err != nil {
		t.Fatalf("PutLog failed: %v", err)
	}

	err := s.PutLog(ctx, logOn("l2", "h1", "2024-01-15"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate day, got %v", err)
	}

	// Same day on another habit is fine
	if err := s.PutLog(ctx, logOn("l3", "h2", "2024-01-15")); err != nil {
		t.Errorf("PutLog for other habit failed: %v", err)
	}
}

func testLogRange(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	for i, day := range []string{"2024-01-10", "2024-01-14", "2024-01-12", "2024-01-20"} {
		if err := s.PutLog(ctx, logOn(string(rune('a'+i)), "h1", day)); err != nil {
			t.Fatalf("PutLog %s failed: %v", day, err)
		}
	}

	logs, err := s.GetLogsByHabitAndDateRange(ctx, "h1", "2024-01-10", "2024-01-14")
	if err != nil {
		t.Fatalf("GetLogsByHabitAndDateRange failed: %v", err)
	}
	want := []string{"2024-01-14", "2024-01-12", "2024-01-10"}
	if len(logs) != len(want) {
		t.Fatalf("expected %d logs, got %d", len(want), len(logs))
	}
	for i, l := range logs {
		if l.Date != want[i] {
			t.Errorf("logs[%d].Date = %s, want %s", i, l.Date, want[i])
		}
	}

	all, err := s.GetLogsByHabit(ctx, "h1")
	if err != nil {
		t.Fatalf("GetLogsByHabit failed: %v", err)
	}
	if len(all) != 4 || all[0].Date != "2024-01-20" {
		t.Errorf("expected 4 logs newest first, got %+v", all)
	}

	if err := s.DeleteLogsByHabit(ctx, "h1"); err != nil {
		t.Fatalf("DeleteLogsByHabit failed: %v", err)
	}
	all, err = s.GetLogsByHabit(ctx, "h1")
	if err != nil {
		t.Fatalf("GetLogsByHabit failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no logs after DeleteLogsByHabit, got %d", len(all))
	}
}

func testLogUpdateAndDelete(t *testing.T, s storage.Provider) {
	ctx := context.Background()
	l := logOn("l1", "h1", "2024-01-15")
	if err := s.PutLog(ctx, l); err != nil {
		t.Fatalf("PutLog failed: %v", err)
	}

	l.Note = "felt great"
	l.UpdatedAt = base.Add(time.Hour)
	if err := s.PutLog(ctx, l); err != nil {
		t.Fatalf("PutLog (update) failed: %v", err)
	}

	got, err := s.GetLog(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLog failed: %v", err)
	}
	if got.Note != "felt great" || !got.UpdatedAt.Equal(l.UpdatedAt) {
		t.Errorf("note update not persisted: %+v", got)
	}

	if err := s.DeleteLog(ctx, "l1"); err != nil {
		t.Fatalf("DeleteLog failed: %v", err)
	}
	if err := s.DeleteLog(ctx, "l1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}
