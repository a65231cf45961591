// Package habits owns habit records for a user. It keeps the cached streak
// and completion fields of each habit consistent with the habit log, checks
// ownership on every entry point and announces changes on the event bus.
package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/events"
	"github.com/julianstephens/habitlog/internal/habitlog"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/storage"
	"github.com/julianstephens/habitlog/internal/validation"
)

// reconcileLimit bounds concurrent log reads during batch reconciliation
const reconcileLimit = 4

type Service struct {
	store  storage.HabitStore
	engine *habitlog.Engine
	bus    *events.Bus
	locks  *keyedMutex
}

// NewService wires a service to its store, log engine and event bus.
// bus may be nil when nobody listens.
func NewService(store storage.HabitStore, engine *habitlog.Engine, bus *events.Bus) *Service {
	return &Service{
		store:  store,
		engine: engine,
		bus:    bus,
		locks:  newKeyedMutex(),
	}
}

// Engine exposes the log engine the service reconciles against
func (s *Service) Engine() *habitlog.Engine {
	return s.engine
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.ErrNotAuthenticated
	}
	return nil
}

// assertOwned is the single ownership guard for every habit entry point
func assertOwned(h models.Habit, userID string) error {
	if h.UserID != userID {
		return fmt.Errorf("habit %s: %w", h.ID, apperr.ErrNotAuthorized)
	}
	return nil
}

// loadOwned fetches a habit and applies the ownership guard
func (s *Service) loadOwned(ctx context.Context, userID, id string) (models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return models.Habit{}, err
	}
	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return models.Habit{}, err
	}
	if err := assertOwned(h, userID); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Service) publish(kind string, userID, habitID string, h *models.Habit) {
	s.bus.Publish(events.Event{Type: kind, UserID: userID, HabitID: habitID, Habit: h})
}

// reconcile recomputes the cached fields of h from its log. When they have
// drifted the habit is reloaded under its lock and the corrected record is
// written back; a failed write is logged and the fresh projection is still
// returned.
func (s *Service) reconcile(ctx context.Context, h models.Habit) (models.Habit, error) {
	d, err := s.engine.Derive(ctx, h.ID)
	if err != nil {
		return models.Habit{}, err
	}
	if d.Matches(h) {
		return h, nil
	}

	unlock := s.locks.Lock(h.ID)
	defer unlock()

	fresh, err := s.store.GetHabit(ctx, h.ID)
	if err != nil {
		// Deleted or unreadable since it was listed; report the projection only
		logger.Warn("Failed to reload habit for reconcile", "habit_id", h.ID, "error", err)
		d.ApplyTo(&h)
		return h, nil
	}
	return s.reconcileLocked(ctx, fresh)
}

// reconcileLocked is reconcile for callers already holding the habit's lock
func (s *Service) reconcileLocked(ctx context.Context, h models.Habit) (models.Habit, error) {
	d, err := s.engine.Derive(ctx, h.ID)
	if err != nil {
		return models.Habit{}, err
	}
	if d.Matches(h) {
		return h, nil
	}

	logger.Debug("Reconciling habit", "habit_id", h.ID, "cached_streak", h.Streak, "streak", d.Streak)
	d.ApplyTo(&h)
	if err := s.store.PutHabit(ctx, h); err != nil {
		logger.Warn("Failed to persist reconciled habit", "habit_id", h.ID, "error", err)
		return h, nil
	}
	s.publish(events.HabitReconciled, h.UserID, h.ID, &h)
	return h, nil
}

// reconcileAll reconciles habits concurrently and keeps their order
func (s *Service) reconcileAll(ctx context.Context, habits []models.Habit) ([]models.Habit, error) {
	out := make([]models.Habit, len(habits))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileLimit)
	for i, h := range habits {
		i, h := i, h
		g.Go(func() error {
			fresh, err := s.reconcile(gCtx, h)
			if err != nil {
				return err
			}
			out[i] = fresh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHabitsByUser returns the user's habits with freshly derived streaks
func (s *Service) GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	habits, err := s.store.GetHabitsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.reconcileAll(ctx, habits)
}

// GetHabit returns one reconciled habit. Habits of other users are
// reported as errors.ErrNotFound.
func (s *Service) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	h, err := s.loadOwned(ctx, userID, id)
	if errors.Is(err, apperr.ErrNotAuthorized) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Habit{}, err
	}
	return s.reconcile(ctx, h)
}

func (s *Service) CreateHabit(ctx context.Context, userID string, in models.CreateHabit) (models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return models.Habit{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Goal = strings.TrimSpace(in.Goal)
	if err := validation.CreateHabit(in); err != nil {
		return models.Habit{}, err
	}

	now := s.engine.Now()
	h := models.Habit{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      in.Name,
		Goal:      in.Goal,
		Icon:      in.Icon,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.PutHabit(ctx, h); err != nil {
		return models.Habit{}, err
	}

	logger.Info("Habit created", "habit_id", h.ID, "name", h.Name)
	s.publish(events.HabitCreated, userID, h.ID, &h)
	return h, nil
}

// UpdateHabit applies the user-editable fields of patch. The cached streak
// fields are carried over from the stored record untouched.
func (s *Service) UpdateHabit(ctx context.Context, userID, id string, patch models.HabitPatch) (models.Habit, error) {
	if err := requireUser(userID); err != nil {
		return models.Habit{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := validation.HabitPatch(patch); err != nil {
		return models.Habit{}, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	h, err := s.loadOwned(ctx, userID, id)
	if err != nil {
		return models.Habit{}, err
	}
	if patch.IsEmpty() {
		return s.reconcileLocked(ctx, h)
	}

	patch.Apply(&h)
	h.UpdatedAt = s.engine.Now()
	if err := s.store.PutHabit(ctx, h); err != nil {
		return models.Habit{}, err
	}

	logger.Info("Habit updated", "habit_id", h.ID)
	s.publish(events.HabitUpdated, userID, h.ID, &h)
	return h, nil
}

// DeleteHabit removes the habit's logs, then the habit
func (s *Service) DeleteHabit(ctx context.Context, userID, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.loadOwned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.engine.DeleteLogsByHabit(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteHabit(ctx, id); err != nil {
		return err
	}

	logger.Info("Habit deleted", "habit_id", id)
	s.publish(events.HabitDeleted, userID, id, nil)
	return nil
}

// ToggleHabitToday flips today's completion and persists the new streak.
// Toggles on the same habit are serialized.
func (s *Service) ToggleHabitToday(ctx context.Context, userID, habitID, note string) (models.ToggleOutcome, error) {
	if err := requireUser(userID); err != nil {
		return models.ToggleOutcome{}, err
	}

	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, err := s.loadOwned(ctx, userID, habitID)
	if err != nil {
		return models.ToggleOutcome{}, err
	}

	res, err := s.engine.ToggleHabitToday(ctx, habitID, note)
	if err != nil {
		return models.ToggleOutcome{}, err
	}

	d := models.Derived{Streak: res.Streak, IsDone: res.Completed}
	if res.Log != nil {
		doneAt := res.Log.CreatedAt
		d.DoneAt = &doneAt
	}
	d.ApplyTo(&h)
	h.UpdatedAt = s.engine.Now()
	if err := s.store.PutHabit(ctx, h); err != nil {
		return models.ToggleOutcome{}, err
	}

	logger.Info("Habit toggled", "habit_id", habitID, "completed", res.Completed, "streak", res.Streak)
	s.publish(events.HabitToggled, userID, habitID, &h)
	return models.ToggleOutcome{
		Completed: res.Completed,
		Streak:    res.Streak,
		Habit:     h,
		Log:       res.Log,
	}, nil
}

// IsCompletedToday reports whether an owned habit has a log for today
func (s *Service) IsCompletedToday(ctx context.Context, userID, habitID string) (bool, error) {
	if _, err := s.loadOwned(ctx, userID, habitID); err != nil {
		return false, err
	}
	return s.engine.IsHabitCompletedToday(ctx, habitID)
}

// RecalculateAllStreaks rewrites every habit of the user whose cached
// fields have drifted from its log and returns how many were rewritten.
// Unlike the read path, write failures are returned.
func (s *Service) RecalculateAllStreaks(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	habits, err := s.store.GetHabitsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	var updated atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileLimit)
	for _, h := range habits {
		h := h
		g.Go(func() error {
			_, changed, err := s.recalculate(gCtx, h.ID, userID)
			if changed {
				updated.Add(1)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return int(updated.Load()), err
	}

	logger.Info("Streaks recalculated", "habits", len(habits), "updated", updated.Load())
	return int(updated.Load()), nil
}

// RecalculateStreak rewrites one habit's cached fields from its log and
// reports whether they had drifted. Write failures are returned.
func (s *Service) RecalculateStreak(ctx context.Context, userID, habitID string) (models.Habit, bool, error) {
	if err := requireUser(userID); err != nil {
		return models.Habit{}, false, err
	}
	return s.recalculate(ctx, habitID, userID)
}

// recalculate reloads the habit under its lock so a concurrent toggle is
// not overwritten with a stale record
func (s *Service) recalculate(ctx context.Context, habitID, userID string) (models.Habit, bool, error) {
	unlock := s.locks.Lock(habitID)
	defer unlock()

	h, err := s.loadOwned(ctx, userID, habitID)
	if err != nil {
		return models.Habit{}, false, err
	}
	d, err := s.engine.Derive(ctx, h.ID)
	if err != nil {
		return models.Habit{}, false, err
	}
	if d.Matches(h) {
		return h, false, nil
	}
	d.ApplyTo(&h)
	if err := s.store.PutHabit(ctx, h); err != nil {
		return models.Habit{}, false, err
	}
	s.publish(events.HabitReconciled, userID, h.ID, &h)
	return h, true, nil
}

// Inspect returns every habit of the user as stored, without reconciling,
// together with its log and the projection the log gives
func (s *Service) Inspect(ctx context.Context, userID string) ([]validation.HabitSnapshot, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	habits, err := s.store.GetHabitsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]validation.HabitSnapshot, len(habits))
	for i, h := range habits {
		logs, err := s.engine.GetLogsByHabit(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		d, err := s.engine.Derive(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out[i] = validation.HabitSnapshot{Habit: h, Logs: logs, Expected: d}
	}
	return out, nil
}
