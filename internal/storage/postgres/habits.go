package postgres

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
	var doneAt sql.NullTime

	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Goal, &h.Icon, &h.Streak, &h.IsDone, &doneAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return models.Habit{}, err
	}
	if doneAt.Valid {
		t := doneAt.Time
		h.DoneAt = &t
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = $1", id)
	h, err := scanHabit(row)
	if err != nil {
		return models.Habit{}, classify(fmt.Sprintf("get habit %s", id), err)
	}
	return h, nil
}

func (s *Store) GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE user_id = $1 ORDER BY created_at, id", userID)
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
	var doneAt sql.NullTime
	if habit.DoneAt != nil {
		doneAt = sql.NullTime{Time: *habit.DoneAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			goal = EXCLUDED.goal,
			icon = EXCLUDED.icon,
			streak = EXCLUDED.streak,
			is_done = EXCLUDED.is_done,
			done_at = EXCLUDED.done_at,
			updated_at = EXCLUDED.updated_at`,
		habit.ID, habit.UserID, habit.Name, habit.Goal, habit.Icon, habit.Streak, habit.IsDone,
		doneAt, habit.CreatedAt, habit.UpdatedAt)

	return classify(fmt.Sprintf("put habit %s", habit.ID), err)
}

func (s *Store) DeleteHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM habits WHERE id = $1", id)
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
