package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/utils"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateHabitName ConflictType = "duplicate_habit_name"
	ConflictInvalidLogDate     ConflictType = "invalid_log_date"
	ConflictFutureLog          ConflictType = "future_log"
	ConflictDuplicateLogDay    ConflictType = "duplicate_log_day"
	ConflictStaleDerivedState  ConflictType = "stale_derived_state"
)

// Conflict represents a detected problem in a user's habits or logs
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Habit names involved
	HabitIDs    []string // IDs of habits involved (for auto-fixing)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string   // Human-readable description of the action
	SourceConflict Conflict // The conflict that triggered this fix action
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// HabitSnapshot is one habit as stored, its raw log, and the projection
// the log engine computes for it
type HabitSnapshot struct {
	Habit    models.Habit
	Logs     []models.HabitLog
	Expected models.Derived
}

// Validator checks stored habits for inconsistencies
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// ValidateHabits checks a user's habits as of today
func (v *Validator) ValidateHabits(snapshots []HabitSnapshot, today string) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	byName := make(map[string][]models.Habit)
	var names []string
	for _, s := range snapshots {
		key := strings.ToLower(strings.TrimSpace(s.Habit.Name))
		if _, seen := byName[key]; !seen {
			names = append(names, key)
		}
		byName[key] = append(byName[key], s.Habit)
	}
	for _, key := range names {
		dupes := byName[key]
		if len(dupes) < 2 {
			continue
		}
		ids := make([]string, len(dupes))
		for i, h := range dupes {
			ids[i] = h.ID
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateHabitName,
			Description: fmt.Sprintf("Duplicate habit name: \"%s\" (%d habits)", dupes[0].Name, len(dupes)),
			Items:       []string{dupes[0].Name},
			HabitIDs:    ids,
		})
	}

	for _, s := range snapshots {
		h := s.Habit
		days := make(map[string]int)
		for _, l := range s.Logs {
			if !utils.ValidateDate(l.Date) {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictInvalidLogDate,
					Description: fmt.Sprintf("Habit \"%s\" has a log with invalid date %q", h.Name, l.Date),
					Date:        l.Date,
					Items:       []string{h.Name},
					HabitIDs:    []string{h.ID},
				})
				continue
			}
			// Dates compare lexically in YYYY-MM-DD
			if l.Date > today {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictFutureLog,
					Description: fmt.Sprintf("Habit \"%s\" is logged for a future day %s", h.Name, l.Date),
					Date:        l.Date,
					Items:       []string{h.Name},
					HabitIDs:    []string{h.ID},
				})
			}
			days[l.Date]++
		}

		var dupDays []string
		for day, n := range days {
			if n > 1 {
				dupDays = append(dupDays, day)
			}
		}
		sort.Strings(dupDays)
		for _, day := range dupDays {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateLogDay,
				Description: fmt.Sprintf("Habit \"%s\" has %d logs on %s", h.Name, days[day], day),
				Date:        day,
				Items:       []string{h.Name},
				HabitIDs:    []string{h.ID},
			})
		}

		if !s.Expected.Matches(h) {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type: ConflictStaleDerivedState,
				Description: fmt.Sprintf("Habit \"%s\" shows streak %d (done: %t) but its log gives streak %d (done: %t)",
					h.Name, h.Streak, h.IsDone, s.Expected.Streak, s.Expected.IsDone),
				Items:    []string{h.Name},
				HabitIDs: []string{h.ID},
			})
		}
	}

	return result
}

// AutoFixStaleHabits rewrites the cached streak of every habit reported as
// stale. reconcile recomputes and persists one habit.
func AutoFixStaleHabits(conflicts []Conflict, reconcile func(habitID string) error) []FixAction {
	actions := []FixAction{}

	for _, conflict := range conflicts {
		if conflict.Type != ConflictStaleDerivedState || len(conflict.HabitIDs) == 0 {
			continue
		}

		id := conflict.HabitIDs[0]
		name := id
		if len(conflict.Items) > 0 {
			name = conflict.Items[0]
		}

		if err := reconcile(id); err != nil {
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Failed to recalculate streak for \"%s\": %v", name, err),
				SourceConflict: conflict,
			})
			continue
		}
		actions = append(actions, FixAction{
			Action:         fmt.Sprintf("Recalculated streak for \"%s\"", name),
			SourceConflict: conflict,
		})
	}

	return actions
}
