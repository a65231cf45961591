package storage

import (
	"context"

	"github.com/julianstephens/habitlog/internal/models"
)

// HabitStore is the "habits" collection, indexed by user.
// Missing rows are reported as errors.ErrNotFound.
type HabitStore interface {
	GetHabit(ctx context.Context, id string) (models.Habit, error)
	GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error)
	PutHabit(ctx context.Context, habit models.Habit) error
	DeleteHabit(ctx context.Context, id string) error
}

// LogStore is the "habitLogs" collection, indexed by habit and day.
// Range results are ordered by date, newest first.
type LogStore interface {
	GetLog(ctx context.Context, id string) (models.HabitLog, error)
	GetLogsByHabit(ctx context.Context, habitID string) ([]models.HabitLog, error)
	GetLogsByHabitAndDateRange(ctx context.Context, habitID, startDay, endDay string) ([]models.HabitLog, error)
	GetLogByHabitAndDate(ctx context.Context, habitID, day string) (models.HabitLog, error)
	// PutLog inserts or updates a log by id. A second log for the same
	// habit and day is rejected with errors.ErrConflict.
	PutLog(ctx context.Context, log models.HabitLog) error
	DeleteLog(ctx context.Context, id string) error
	DeleteLogsByHabit(ctx context.Context, habitID string) error
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	Ping(ctx context.Context) error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	HabitStore
	LogStore

	// Utils
	GetConfigPath() string
}
