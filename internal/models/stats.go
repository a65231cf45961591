package models

// ToggleResult is the outcome of toggling today's log for a habit
type ToggleResult struct {
	Completed bool      `json:"completed"`
	Streak    int       `json:"streak"`
	Log       *HabitLog `json:"log,omitempty"`
}

// ToggleOutcome is a ToggleResult together with the persisted habit projection
type ToggleOutcome struct {
	Completed bool      `json:"completed"`
	Streak    int       `json:"streak"`
	Habit     Habit     `json:"habit"`
	Log       *HabitLog `json:"log,omitempty"`
}

// HabitStats summarizes completion over a trailing window of days
type HabitStats struct {
	TotalDays      int     `json:"total_days"`
	CompletedDays  int     `json:"completed_days"`
	CompletionRate float64 `json:"completion_rate"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}

// CalendarDay is a single day of a completion calendar
type CalendarDay struct {
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}
