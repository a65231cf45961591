// Package habitlog derives streaks, statistics and calendars from the
// per-day completion log of a habit. The log is the source of truth; the
// cached fields on a habit are only ever a projection of it.
package habitlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitlog/internal/constants"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage"
	"github.com/julianstephens/habitlog/internal/utils"
	"github.com/julianstephens/habitlog/internal/validation"
)

// Engine answers log queries for a single store. It does not check habit
// ownership; callers go through the habit service for that.
//
// ToggleHabitToday reads then writes, so callers must not toggle the same
// habit concurrently.
type Engine struct {
	store storage.LogStore
	clock *utils.Clock
}

func NewEngine(store storage.LogStore, clock *utils.Clock) *Engine {
	return &Engine{
		store: store,
		clock: clock,
	}
}

// Now returns the current instant in the engine's timezone
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Today returns today's date in the engine's timezone
func (e *Engine) Today() string {
	return e.clock.Today()
}

func (e *Engine) GetLogsByHabit(ctx context.Context, habitID string) ([]models.HabitLog, error) {
	return e.store.GetLogsByHabit(ctx, habitID)
}

// GetLogsByHabitAndDateRange returns logs dated within [start, end], newest first
func (e *Engine) GetLogsByHabitAndDateRange(ctx context.Context, habitID, start, end string) ([]models.HabitLog, error) {
	if err := validation.Date(start); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	if err := validation.Date(end); err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if start > end {
		return []models.HabitLog{}, nil
	}
	return e.store.GetLogsByHabitAndDateRange(ctx, habitID, start, end)
}

// GetLogByHabitAndDate returns errors.ErrNotFound when the habit has no log that day
func (e *Engine) GetLogByHabitAndDate(ctx context.Context, habitID, date string) (models.HabitLog, error) {
	if err := validation.Date(date); err != nil {
		return models.HabitLog{}, err
	}
	return e.store.GetLogByHabitAndDate(ctx, habitID, date)
}

// CreateLog records a completion. A second log for the same habit and day
// fails with errors.ErrConflict.
func (e *Engine) CreateLog(ctx context.Context, habitID, date, note string) (models.HabitLog, error) {
	if err := validation.Date(date); err != nil {
		return models.HabitLog{}, err
	}
	if err := validation.LogNote(note); err != nil {
		return models.HabitLog{}, err
	}

	if _, err := e.store.GetLogByHabitAndDate(ctx, habitID, date); err == nil {
		return models.HabitLog{}, fmt.Errorf("log for %s on %s: %w", habitID, date, apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.HabitLog{}, err
	}

	now := e.clock.Now()
	log := models.HabitLog{
		ID:        uuid.New().String(),
		HabitID:   habitID,
		Date:      date,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.PutLog(ctx, log); err != nil {
		return models.HabitLog{}, err
	}

	logger.Debug("Log created", "habit_id", habitID, "date", date)
	return log, nil
}

// UpdateLog replaces the note of an existing log
func (e *Engine) UpdateLog(ctx context.Context, id, note string) (models.HabitLog, error) {
	if err := validation.LogNote(note); err != nil {
		return models.HabitLog{}, err
	}

	log, err := e.store.GetLog(ctx, id)
	if err != nil {
		return models.HabitLog{}, err
	}
	log.Note = note
	log.UpdatedAt = e.clock.Now()
	if err := e.store.PutLog(ctx, log); err != nil {
		return models.HabitLog{}, err
	}
	return log, nil
}

func (e *Engine) DeleteLog(ctx context.Context, id string) error {
	return e.store.DeleteLog(ctx, id)
}

func (e *Engine) DeleteLogsByHabit(ctx context.Context, habitID string) error {
	return e.store.DeleteLogsByHabit(ctx, habitID)
}

func (e *Engine) IsHabitCompletedOnDate(ctx context.Context, habitID, date string) (bool, error) {
	_, err := e.GetLogByHabitAndDate(ctx, habitID, date)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) IsHabitCompletedToday(ctx context.Context, habitID string) (bool, error) {
	return e.IsHabitCompletedOnDate(ctx, habitID, e.clock.Today())
}

func (e *Engine) CalculateCurrentStreak(ctx context.Context, habitID string) (int, error) {
	logs, err := e.store.GetLogsByHabit(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return CurrentStreak(logDates(logs), e.clock.Today()), nil
}

func (e *Engine) CalculateLongestStreak(ctx context.Context, habitID string) (int, error) {
	logs, err := e.store.GetLogsByHabit(ctx, habitID)
	if err != nil {
		return 0, err
	}
	return LongestStreak(logDates(logs)), nil
}

// ToggleHabitToday deletes today's log if there is one and creates it
// otherwise, then recomputes the current streak.
func (e *Engine) ToggleHabitToday(ctx context.Context, habitID, note string) (models.ToggleResult, error) {
	today := e.clock.Today()

	existing, err := e.store.GetLogByHabitAndDate(ctx, habitID, today)
	switch {
	case err == nil:
		if err := e.store.DeleteLog(ctx, existing.ID); err != nil {
			return models.ToggleResult{}, err
		}
		streak, err := e.CalculateCurrentStreak(ctx, habitID)
		if err != nil {
			return models.ToggleResult{}, err
		}
		logger.Debug("Habit unmarked", "habit_id", habitID, "date", today, "streak", streak)
		return models.ToggleResult{Completed: false, Streak: streak}, nil

	case errors.Is(err, apperr.ErrNotFound):
		log, err := e.CreateLog(ctx, habitID, today, note)
		if err != nil {
			return models.ToggleResult{}, err
		}
		streak, err := e.CalculateCurrentStreak(ctx, habitID)
		if err != nil {
			return models.ToggleResult{}, err
		}
		logger.Debug("Habit marked", "habit_id", habitID, "date", today, "streak", streak)
		return models.ToggleResult{Completed: true, Streak: streak, Log: &log}, nil

	default:
		return models.ToggleResult{}, err
	}
}

// GetHabitStats summarizes the trailing window of days ending today.
// A non-positive window uses the default of 30 days.
func (e *Engine) GetHabitStats(ctx context.Context, habitID string, days int) (models.HabitStats, error) {
	if days <= 0 {
		days = constants.DefaultStatsWindowDays
	}

	logs, err := e.store.GetLogsByHabit(ctx, habitID)
	if err != nil {
		return models.HabitStats{}, err
	}

	today := e.clock.Today()
	start, err := utils.AddDays(today, -(days - 1))
	if err != nil {
		return models.HabitStats{}, err
	}

	completed := 0
	for _, l := range logs {
		if l.Date >= start && l.Date <= today {
			completed++
		}
	}

	dates := logDates(logs)
	return models.HabitStats{
		TotalDays:      days,
		CompletedDays:  completed,
		CompletionRate: float64(completed) / float64(days),
		CurrentStreak:  CurrentStreak(dates, today),
		LongestStreak:  LongestStreak(dates),
	}, nil
}

// GetCompletionCalendar returns every day of the month in order with its completion state
func (e *Engine) GetCompletionCalendar(ctx context.Context, habitID string, year, month int) ([]models.CalendarDay, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month %d: %w", month, apperr.ErrInvalidArgument)
	}
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("year %d: %w", year, apperr.ErrInvalidArgument)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	n := utils.DaysInMonth(year, time.Month(month))
	start := first.Format(constants.DateFormat)
	end := first.AddDate(0, 0, n-1).Format(constants.DateFormat)

	logs, err := e.store.GetLogsByHabitAndDateRange(ctx, habitID, start, end)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(logs))
	for _, l := range logs {
		done[l.Date] = true
	}

	calendar := make([]models.CalendarDay, n)
	for i := 0; i < n; i++ {
		date := first.AddDate(0, 0, i).Format(constants.DateFormat)
		calendar[i] = models.CalendarDay{Date: date, Completed: done[date]}
	}
	return calendar, nil
}

// Derive computes the cached fields of a habit from its live log
func (e *Engine) Derive(ctx context.Context, habitID string) (models.Derived, error) {
	logs, err := e.store.GetLogsByHabit(ctx, habitID)
	if err != nil {
		return models.Derived{}, err
	}
	return Project(logs, e.clock.Today()), nil
}
