package models

import "time"

// Habit represents a recurring practice to track.
//
// Streak, IsDone and DoneAt are a cached projection of the habit's log and
// are only written by the toggle and reconciliation paths.
type Habit struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Goal      string     `json:"goal"`
	Icon      string     `json:"icon"`
	Streak    int        `json:"streak"`
	IsDone    bool       `json:"is_done"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HabitLog records that a habit was completed on a given day
type HabitLog struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habit_id"`
	Date      string    `json:"date"` // YYYY-MM-DD format
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateHabit holds the user-supplied fields of a new habit
type CreateHabit struct {
	Name string `json:"name"`
	Goal string `json:"goal"`
	Icon string `json:"icon"`
}

// HabitPatch holds the user-editable fields of a habit. Nil fields are left unchanged.
type HabitPatch struct {
	Name *string `json:"name,omitempty"`
	Goal *string `json:"goal,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p HabitPatch) IsEmpty() bool {
	return p.Name == nil && p.Goal == nil && p.Icon == nil
}

// Apply copies the set fields of the patch onto h
func (p HabitPatch) Apply(h *Habit) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Goal != nil {
		h.Goal = *p.Goal
	}
	if p.Icon != nil {
		h.Icon = *p.Icon
	}
}

// Derived is the projection of a habit's log onto its cached fields
type Derived struct {
	Streak int
	IsDone bool
	DoneAt *time.Time
}

// Matches reports whether the cached fields of h agree with d
func (d Derived) Matches(h Habit) bool {
	if h.Streak != d.Streak || h.IsDone != d.IsDone {
		return false
	}
	if (h.DoneAt == nil) != (d.DoneAt == nil) {
		return false
	}
	return h.DoneAt == nil || h.DoneAt.Equal(*d.DoneAt)
}

// ApplyTo writes d onto the cached fields of h
func (d Derived) ApplyTo(h *Habit) {
	h.Streak = d.Streak
	h.IsDone = d.IsDone
	h.DoneAt = d.DoneAt
}
