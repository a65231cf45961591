package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
)

const habitColumns = "id, user_id, name, goal, icon, streak, is_done, done_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var isDone int
	var createdAt, updatedAt string
	var doneAt sql.NullString

	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Goal, &h.Icon, &h.Streak, &isDone, &doneAt, &createdAt, &updatedAt); err != nil {
		return models.Habit{}, err
	}
	h.IsDone = isDone != 0

	var err error
	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Habit{}, err
	}
	if doneAt.Valid {
		t, err := parseTime("done_at", doneAt.String)
		if err != nil {
			return models.Habit{}, err
		}
		h.DoneAt = &t
	}

	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id)
	h, err := scanHabit(row)
	if err != nil {
		return models.Habit{}, classify(fmt.Sprintf("get habit %s", id), err)
	}
	return h, nil
}

func (s *Store) GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, classify("list habits", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, classify("list habits", err)
		}
		habits = append(habits, h)
	}

	return habits, classify("list habits", rows.Err())
}

func (s *Store) PutHabit(ctx context.Context, habit models.Habit) error {
	isDone := 0
	if habit.IsDone {
		isDone = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			goal = excluded.goal,
			icon = excluded.icon,
			streak = excluded.streak,
			is_done = excluded.is_done,
			done_at = excluded.done_at,
			updated_at = excluded.updated_at`,
		habit.ID, habit.UserID, habit.Name, habit.Goal, habit.Icon, habit.Streak, isDone,
		nullTime(habit.DoneAt), formatTime(habit.CreatedAt), formatTime(habit.UpdatedAt))

	return classify(fmt.Sprintf("put habit %s", habit.ID), err)
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM habits WHERE id = ?", id)
	if err != nil {
		return classify(fmt.Sprintf("delete habit %s", id), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return classify(fmt.Sprintf("delete habit %s", id), err)
	}
	if rows == 0 {
		return fmt.Errorf("delete habit %s: %w", id, apperr.ErrNotFound)
	}

	return nil
}
