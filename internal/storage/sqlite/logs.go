package sqlite

import (
	"context"
	"fmt"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
)

const logColumns = "id, habit_id, day, note, created_at, updated_at"

func scanLog(row rowScanner) (models.HabitLog, error) {
	var l models.HabitLog
	var createdAt, updatedAt string

	if err := row.Scan(&l.ID, &l.HabitID, &l.Date, &l.Note, &createdAt, &updatedAt); err != nil {
		return models.HabitLog{}, err
	}

	var err error
	if l.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.HabitLog{}, err
	}
	if l.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.HabitLog{}, err
	}

	return l, nil
}

func (s *Store) queryLogs(ctx context.Context, op, query string, args ...any) ([]models.HabitLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	logs := []models.HabitLog{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		logs = append(logs, l)
	}

	return logs, classify(op, rows.Err())
}

func (s *Store) GetLog(ctx context.Context, id string) (models.HabitLog, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+logColumns+" FROM habit_logs WHERE id = ?", id)
	l, err := scanLog(row)
	if err != nil {
		return models.HabitLog{}, classify(fmt.Sprintf("get log %s", id), err)
	}
	return l, nil
}

func (s *Store) GetLogsByHabit(ctx context.Context, habitID string) ([]models.HabitLog, error) {
	return s.queryLogs(ctx, "list logs",
		"SELECT "+logColumns+" FROM habit_logs WHERE habit_id = ? ORDER BY day DESC", habitID)
}

func (s *Store) GetLogsByHabitAndDateRange(ctx context.Context, habitID, startDay, endDay string) ([]models.HabitLog, error) {
	return s.queryLogs(ctx, "list logs in range", `
		SELECT `+logColumns+` FROM habit_logs
		WHERE habit_id = ? AND day >= ? AND day <= ?
		ORDER BY day DESC`, habitID, startDay, endDay)
}

func (s *Store) GetLogByHabitAndDate(ctx context.Context, habitID, day string) (models.HabitLog, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+logColumns+" FROM habit_logs WHERE habit_id = ? AND day = ?", habitID, day)
	l, err := scanLog(row)
	if err != nil {
		return models.HabitLog{}, classify(fmt.Sprintf("get log for %s on %s", habitID, day), err)
	}
	return l, nil
}

func (s *Store) PutLog(ctx context.Context, log models.HabitLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habit_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			note = excluded.note,
			updated_at = excluded.updated_at`,
		log.ID, log.HabitID, log.Date, log.Note, formatTime(log.CreatedAt), formatTime(log.UpdatedAt))

	return classify(fmt.Sprintf("put log for %s on %s", log.HabitID, log.Date), err)
}

func (s *Store) DeleteLog(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM habit_logs WHERE id = ?", id)
	if err != nil {
		return classify(fmt.Sprintf("delete log %s", id), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify(fmt.Sprintf("delete log %s", id), err)
	}
	if rows == 0 {
		return fmt.Errorf("delete log %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}

func (s *Store) DeleteLogsByHabit(ctx context.Context, habitID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM habit_logs WHERE habit_id = ?", habitID)
	return classify(fmt.Sprintf("delete logs for %s", habitID), err)
}
