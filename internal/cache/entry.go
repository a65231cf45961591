package cache

import (
	"context"

	"github.com/julianstephens/habitlog/internal/models"
)

// Key addresses a cache entry. An empty HabitID addresses the user's list.
type Key struct {
	UserID  string
	HabitID string
}

// ListKey is the key of a user's habit list
func ListKey(userID string) Key {
	return Key{UserID: userID}
}

func (k Key) String() string {
	if k.HabitID == "" {
		return k.UserID + "/habits"
	}
	return k.UserID + "/habits/" + k.HabitID
}

// listEntry mirrors "all habits of a user"
type listEntry struct {
	habits  []models.Habit
	loaded  bool
	seq     int64            // last write to any item
	itemSeq map[string]int64 // last write per habit, deletes included
	cancel  context.CancelFunc
	pending []*snapshot
}

// entityEntry mirrors one habit
type entityEntry struct {
	habit   models.Habit
	seq     int64
	deleted bool
}

// snapshot is the rollback state of one in-flight toggle
type snapshot struct {
	id      int64
	habitID string
	habits  []models.Habit
	loaded  bool
	applied int64         // seq of the optimistic write
	prior   *models.Habit // list projection of the habit before the toggle
}

func newListEntry() *listEntry {
	return &listEntry{itemSeq: make(map[string]int64)}
}

func (e *listEntry) index(habitID string) int {
	for i := range e.habits {
		if e.habits[i].ID == habitID {
			return i
		}
	}
	return -1
}

// put replaces or appends h and stamps it
func (e *listEntry) put(h models.Habit, seq int64) {
	if i := e.index(h.ID); i >= 0 {
		e.habits[i] = cloneHabit(h)
	} else {
		e.habits = append(e.habits, cloneHabit(h))
	}
	e.stamp(h.ID, seq)
}

// remove drops the habit and leaves a tombstone stamp
func (e *listEntry) remove(habitID string, seq int64) {
	if i := e.index(habitID); i >= 0 {
		e.habits = append(e.habits[:i:i], e.habits[i+1:]...)
	}
	e.stamp(habitID, seq)
}

func (e *listEntry) stamp(habitID string, seq int64) {
	e.itemSeq[habitID] = seq
	if seq > e.seq {
		e.seq = seq
	}
}

func (e *listEntry) toggling(habitID string) bool {
	for _, s := range e.pending {
		if s.habitID == habitID {
			return true
		}
	}
	return false
}

func (e *listEntry) popSnapshot(id int64) {
	for i, s := range e.pending {
		if s.id == id {
			e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
			return
		}
	}
}

func cloneHabit(h models.Habit) models.Habit {
	if h.DoneAt != nil {
		t := *h.DoneAt
		h.DoneAt = &t
	}
	return h
}

func cloneHabits(habits []models.Habit) []models.Habit {
	if habits == nil {
		return nil
	}
	out := make([]models.Habit, len(habits))
	for i, h := range habits {
		out[i] = cloneHabit(h)
	}
	return out
}
