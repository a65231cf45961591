// Package cache keeps an in-memory mirror of each user's habit list and of
// single habits, consistent with the habit service and with each other.
//
// Toggles are applied optimistically to the list: a snapshot is taken, the
// flipped completion state is written immediately, and the authoritative
// result either commits into both views or the snapshot is restored.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/habitlog/internal/constants"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/events"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/models"
)

var (
	// ErrToggleInFlight is returned when a toggle for the same habit has not finished
	ErrToggleInFlight = errors.New("toggle already in progress for this habit")
	// ErrSuperseded is returned when a refresh was cancelled by a newer write
	// and there is no cached value to fall back on
	ErrSuperseded = errors.New("refresh superseded by a newer write")
)

// Backend is the part of the habit service the cache drives
type Backend interface {
	GetHabitsByUser(ctx context.Context, userID string) ([]models.Habit, error)
	GetHabit(ctx context.Context, userID, id string) (models.Habit, error)
	CreateHabit(ctx context.Context, userID string, in models.CreateHabit) (models.Habit, error)
	UpdateHabit(ctx context.Context, userID, id string, patch models.HabitPatch) (models.Habit, error)
	DeleteHabit(ctx context.Context, userID, id string) error
	IsCompletedToday(ctx context.Context, userID, habitID string) (bool, error)
	ToggleHabitToday(ctx context.Context, userID, habitID, note string) (models.ToggleOutcome, error)
}

type Cache struct {
	backend Backend
	now     func() time.Time
	clock   seqClock
	group   singleflight.Group

	mu       sync.Mutex
	day      string // day the entries were loaded on
	lists    map[string]*listEntry
	entities map[Key]*entityEntry
	inflight map[Key]struct{}

	sub *events.Subscription
}

// New builds a cache over backend. now stamps optimistic writes. When bus is
// non-nil the cache follows habit events published by other writers.
func New(backend Backend, bus *events.Bus, now func() time.Time) *Cache {
	c := &Cache{
		backend:  backend,
		now:      now,
		lists:    make(map[string]*listEntry),
		entities: make(map[Key]*entityEntry),
		inflight: make(map[Key]struct{}),
	}
	if bus != nil {
		c.sub = bus.Subscribe("", c.onEvent)
	}
	return c
}

// Close stops following the event bus
func (c *Cache) Close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
}

// rollover drops every entry once the day has changed since they were
// loaded; done state is only valid for the day it was read on. Caller holds
// c.mu.
func (c *Cache) rollover() {
	today := c.now().Format(constants.DateFormat)
	if c.day == today {
		return
	}
	if c.day != "" {
		for _, e := range c.lists {
			if e.cancel != nil {
				e.cancel()
			}
		}
		c.lists = make(map[string]*listEntry)
		c.entities = make(map[Key]*entityEntry)
		logger.Debug("Day changed, habit cache cleared", "from", c.day, "to", today)
	}
	c.day = today
}

func (c *Cache) checkDay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollover()
}

// ListHabits returns the cached list, loading it on first use
func (c *Cache) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	c.checkDay()
	if habits, ok := c.PeekList(userID); ok {
		return habits, nil
	}
	habits, err := c.RefreshList(ctx, userID)
	if errors.Is(err, ErrSuperseded) {
		return c.RefreshList(ctx, userID)
	}
	return habits, err
}

type listResult struct {
	habits []models.Habit
}

// RefreshList reloads the user's list from the service. Concurrent refreshes
// for one user share a single fetch. Items written after the fetch started
// keep their newer cached value.
func (c *Cache) RefreshList(ctx context.Context, userID string) ([]models.Habit, error) {
	ch := c.group.DoChan(ListKey(userID).String(), func() (any, error) {
		return c.refreshList(ctx, userID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneHabits(res.Val.(listResult).habits), nil
	}
}

func (c *Cache) refreshList(ctx context.Context, userID string) (listResult, error) {
	// Detached from the first caller so that one caller giving up does not
	// fail the others; only a toggle cancels it.
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	c.mu.Lock()
	e, ok := c.lists[userID]
	if !ok {
		e = newListEntry()
		c.lists[userID] = e
	}
	ticket := c.clock.Next()
	e.cancel = cancel
	c.mu.Unlock()

	fetched, err := c.backend.GetHabitsByUser(rctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	superseded := rctx.Err() != nil
	e.cancel = nil

	if c.lists[userID] != e {
		// Invalidated while loading; hand the result back without caching it
		if err != nil {
			return listResult{}, err
		}
		return listResult{habits: fetched}, nil
	}

	if err != nil {
		if superseded {
			if e.loaded {
				return listResult{habits: cloneHabits(e.habits)}, nil
			}
			return listResult{}, fmt.Errorf("%s: %w", ListKey(userID), ErrSuperseded)
		}
		return listResult{}, err
	}

	c.mergeList(userID, e, fetched, ticket)
	return listResult{habits: cloneHabits(e.habits)}, nil
}

// mergeList folds a fetch that started at ticket into e
func (c *Cache) mergeList(userID string, e *listEntry, fetched []models.Habit, ticket int64) {
	seq := c.clock.Next()
	merged := make([]models.Habit, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))

	for _, h := range fetched {
		seen[h.ID] = true

		key := Key{UserID: userID, HabitID: h.ID}
		if e.itemSeq[h.ID] > ticket || e.toggling(h.ID) {
			// A newer write or a pending optimistic value wins
			if i := e.index(h.ID); i >= 0 {
				merged = append(merged, e.habits[i])
				continue
			}
			ent, ok := c.entities[key]
			switch {
			case ok && ent.deleted && ent.seq > ticket:
				// Deleted after the fetch started
			case ok && !ent.deleted && ent.seq > ticket:
				merged = append(merged, cloneHabit(ent.habit))
			default:
				merged = append(merged, cloneHabit(h))
			}
			continue
		}

		if ent, ok := c.entities[key]; ok && ent.seq > ticket {
			if !ent.deleted {
				merged = append(merged, cloneHabit(ent.habit))
				e.itemSeq[h.ID] = seq
			}
			continue
		}

		merged = append(merged, cloneHabit(h))
		e.itemSeq[h.ID] = seq
		if ent, ok := c.entities[key]; ok {
			ent.habit = cloneHabit(h)
			ent.seq = seq
		}
	}

	// Habits created after the fetch started are not in it
	for _, h := range e.habits {
		if !seen[h.ID] && e.itemSeq[h.ID] > ticket {
			merged = append(merged, h)
		}
	}

	// Entities the service no longer returns are gone
	for key, ent := range c.entities {
		if key.UserID == userID && !seen[key.HabitID] && ent.seq < ticket {
			delete(c.entities, key)
		}
	}

	e.habits = merged
	e.loaded = true
	if seq > e.seq {
		e.seq = seq
	}
}

type habitResult struct {
	habit  models.Habit
	ticket int64
}

// GetHabit returns the cached habit, loading it on first use
func (c *Cache) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	key := Key{UserID: userID, HabitID: id}
	c.checkDay()
	if h, ok := c.PeekHabit(userID, id); ok {
		return h, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		ticket := c.clock.Next()
		h, err := c.backend.GetHabit(context.WithoutCancel(ctx), userID, id)
		return habitResult{habit: h, ticket: ticket}, err
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.Habit{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return models.Habit{}, res.Err
	}
	fetched := res.Val.(habitResult)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entities[key]; ok && ent.seq > fetched.ticket {
		if ent.deleted {
			return models.Habit{}, fmt.Errorf("habit %s: %w", id, apperr.ErrNotFound)
		}
		return cloneHabit(ent.habit), nil
	}

	seq := c.clock.Next()
	ent := &entityEntry{habit: cloneHabit(fetched.habit), seq: seq}
	c.entities[key] = ent

	if e, ok := c.lists[userID]; ok && !e.toggling(id) {
		if i := e.index(id); i >= 0 {
			if e.itemSeq[id] < fetched.ticket {
				e.habits[i] = cloneHabit(fetched.habit)
				e.stamp(id, seq)
			} else {
				ent.habit = cloneHabit(e.habits[i])
			}
		}
	}
	return cloneHabit(ent.habit), nil
}

// CreateHabit creates through the service and adds the habit to both views
func (c *Cache) CreateHabit(ctx context.Context, userID string, in models.CreateHabit) (models.Habit, error) {
	h, err := c.backend.CreateHabit(ctx, userID, in)
	if err != nil {
		return models.Habit{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(userID, h, true)
	return cloneHabit(h), nil
}

// UpdateHabit updates through the service and writes the result to both views
func (c *Cache) UpdateHabit(ctx context.Context, userID, id string, patch models.HabitPatch) (models.Habit, error) {
	h, err := c.backend.UpdateHabit(ctx, userID, id, patch)
	if err != nil {
		return models.Habit{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(userID, h, true)
	return cloneHabit(h), nil
}

// DeleteHabit deletes through the service and evicts the habit from both views
func (c *Cache) DeleteHabit(ctx context.Context, userID, id string) error {
	if err := c.backend.DeleteHabit(ctx, userID, id); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evict(userID, id)
	return nil
}

// commit writes an authoritative habit into the entity entry and the list.
// Caller holds c.mu.
func (c *Cache) commit(userID string, h models.Habit, createEntity bool) {
	seq := c.clock.Next()
	key := Key{UserID: userID, HabitID: h.ID}
	if ent, ok := c.entities[key]; ok || createEntity {
		if !ok {
			ent = &entityEntry{}
			c.entities[key] = ent
		}
		ent.habit = cloneHabit(h)
		ent.seq = seq
		ent.deleted = false
	}
	if e, ok := c.lists[userID]; ok {
		// Also recorded on a list still loading, so the merge keeps it
		e.put(h, seq)
	}
}

// evict tombstones the entity entry and removes the list item. Caller holds c.mu.
func (c *Cache) evict(userID, id string) {
	seq := c.clock.Next()
	c.entities[Key{UserID: userID, HabitID: id}] = &entityEntry{seq: seq, deleted: true}
	if e, ok := c.lists[userID]; ok {
		e.remove(id, seq)
	}
}

// ToggleToday flips today's completion of a habit.
//
// The list is updated optimistically before the service call: any
// in-flight list refresh is cancelled, a snapshot is taken, and the habit's
// completion is flipped in place (streak is left alone). On success the
// authoritative result is written to both views. On failure the list is
// restored from the snapshot and the entity entry is left as it was.
func (c *Cache) ToggleToday(ctx context.Context, userID, habitID, note string) (models.ToggleOutcome, error) {
	key := Key{UserID: userID, HabitID: habitID}

	c.mu.Lock()
	c.rollover()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return models.ToggleOutcome{}, fmt.Errorf("habit %s: %w", habitID, ErrToggleInFlight)
	}
	c.inflight[key] = struct{}{}

	e, ok := c.lists[userID]
	if !ok {
		e = newListEntry()
		c.lists[userID] = e
	}
	if e.cancel != nil {
		e.cancel()
	}
	snap := &snapshot{
		id:      c.clock.Next(),
		habitID: habitID,
		habits:  cloneHabits(e.habits),
		loaded:  e.loaded,
	}
	e.pending = append(e.pending, snap)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		e.popSnapshot(snap.id)
		c.mu.Unlock()
	}()

	completed, err := c.backend.IsCompletedToday(ctx, userID, habitID)
	if err != nil {
		return models.ToggleOutcome{}, err
	}

	c.mu.Lock()
	if i := e.index(habitID); i >= 0 {
		// Re-snapshot so writes that landed during the point read are kept
		snap.habits = cloneHabits(e.habits)
		snap.loaded = e.loaded
		prior := cloneHabit(e.habits[i])
		snap.prior = &prior

		h := &e.habits[i]
		now := c.now()
		h.IsDone = !completed
		if h.IsDone {
			h.DoneAt = &now
		} else {
			h.DoneAt = nil
		}
		h.UpdatedAt = now
		snap.applied = c.clock.Next()
		e.stamp(habitID, snap.applied)
	}
	c.mu.Unlock()

	out, err := c.backend.ToggleHabitToday(ctx, userID, habitID, note)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.rollback(e, snap)
		logger.Debug("Optimistic toggle rolled back", "habit_id", habitID, "error", err)
		return models.ToggleOutcome{}, err
	}

	c.commit(userID, out.Habit, true)
	return out, nil
}

// rollback undoes an optimistic toggle. If nothing else wrote to the list
// since the optimistic write, the snapshot is restored whole; otherwise only
// the toggled habit's prior projection is put back. Caller holds c.mu.
func (c *Cache) rollback(e *listEntry, snap *snapshot) {
	if snap.applied == 0 {
		// Nothing was applied
		return
	}
	if e.seq == snap.applied {
		e.habits = snap.habits
		e.loaded = snap.loaded
	} else if i := e.index(snap.habitID); i >= 0 && snap.prior != nil {
		e.habits[i] = cloneHabit(*snap.prior)
	}
	// The restore is itself a write; later rollbacks must not undo it
	e.stamp(snap.habitID, c.clock.Next())
}

// onEvent applies changes made through the service by other writers
func (c *Cache) onEvent(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Type == events.HabitDeleted {
		c.evict(ev.UserID, ev.HabitID)
		return
	}
	if ev.Habit == nil {
		return
	}
	if _, busy := c.inflight[Key{UserID: ev.UserID, HabitID: ev.HabitID}]; busy {
		// The toggle commits or rolls back on its own
		return
	}
	c.commit(ev.UserID, *ev.Habit, false)
}

// PeekList returns the cached list without loading it
func (c *Cache) PeekList(userID string) ([]models.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lists[userID]
	if !ok || !e.loaded {
		return nil, false
	}
	return cloneHabits(e.habits), true
}

// PeekHabit returns the cached entity without loading it
func (c *Cache) PeekHabit(userID, id string) (models.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.entities[Key{UserID: userID, HabitID: id}]
	if !ok || ent.deleted {
		return models.Habit{}, false
	}
	return cloneHabit(ent.habit), true
}

// Invalidate drops every entry of the user and cancels its list refresh
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.lists[userID]; ok {
		if e.cancel != nil {
			e.cancel()
		}
		delete(c.lists, userID)
	}
	for key := range c.entities {
		if key.UserID == userID {
			delete(c.entities, key)
		}
	}
}
