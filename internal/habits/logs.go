package habits

import (
	"context"
	"fmt"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
)

// GetStats returns completion statistics for an owned habit
func (s *Service) GetStats(ctx context.Context, userID, habitID string, days int) (models.HabitStats, error) {
	if _, err := s.loadOwned(ctx, userID, habitID); err != nil {
		return models.HabitStats{}, err
	}
	return s.engine.GetHabitStats(ctx, habitID, days)
}

// GetCalendar returns the month's completion calendar for an owned habit
func (s *Service) GetCalendar(ctx context.Context, userID, habitID string, year, month int) ([]models.CalendarDay, error) {
	if _, err := s.loadOwned(ctx, userID, habitID); err != nil {
		return nil, err
	}
	return s.engine.GetCompletionCalendar(ctx, habitID, year, month)
}

// GetLogs returns an owned habit's logs, newest first. Empty bounds return the whole log.
func (s *Service) GetLogs(ctx context.Context, userID, habitID, start, end string) ([]models.HabitLog, error) {
	if _, err := s.loadOwned(ctx, userID, habitID); err != nil {
		return nil, err
	}
	if start == "" && end == "" {
		return s.engine.GetLogsByHabit(ctx, habitID)
	}
	if start == "" {
		start = "0001-01-01"
	}
	if end == "" {
		end = s.engine.Today()
	}
	return s.engine.GetLogsByHabitAndDateRange(ctx, habitID, start, end)
}

// UpdateLogNote replaces the note on the habit's log for date
func (s *Service) UpdateLogNote(ctx context.Context, userID, habitID, date, note string) (models.HabitLog, error) {
	if _, err := s.loadOwned(ctx, userID, habitID); err != nil {
		return models.HabitLog{}, err
	}
	log, err := s.engine.GetLogByHabitAndDate(ctx, habitID, date)
	if err != nil {
		return models.HabitLog{}, err
	}
	return s.engine.UpdateLog(ctx, log.ID, note)
}

// LogDay records a completion for a past day or today and refreshes the
// habit's cached streak. Future days are rejected.
func (s *Service) LogDay(ctx context.Context, userID, habitID, date, note string) (models.HabitLog, models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return models.HabitLog{}, models.Habit{}, err
	}

	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, err := s.loadOwned(ctx, userID, habitID)
	if err != nil {
		return models.HabitLog{}, models.Habit{}, err
	}
	if date > s.engine.Today() {
		return models.HabitLog{}, models.Habit{}, fmt.Errorf("date %s is in the future: %w", date, apperr.ErrInvalidArgument)
	}

	log, err := s.engine.CreateLog(ctx, habitID, date, note)
	if err != nil {
		return models.HabitLog{}, models.Habit{}, err
	}
	h, err = s.reconcileLocked(ctx, h)
	if err != nil {
		return models.HabitLog{}, models.Habit{}, err
	}
	return log, h, nil
}

// UnlogDay removes the completion for date and refreshes the cached streak
func (s *Service) UnlogDay(ctx context.Context, userID, habitID, date string) (models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return models.Habit{}, err
	}

	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, err := s.loadOwned(ctx, userID, habitID)
	if err != nil {
		return models.Habit{}, err
	}
	log, err := s.engine.GetLogByHabitAndDate(ctx, habitID, date)
	if err != nil {
		return models.Habit{}, err
	}
	if err := s.engine.DeleteLog(ctx, log.ID); err != nil {
		return models.Habit{}, err
	}
	return s.reconcileLocked(ctx, h)
}
