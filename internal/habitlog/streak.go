package habitlog

import (
	"sort"

	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/utils"
)

// CurrentStreak counts consecutive completed days ending today or yesterday.
//
// The most recent date seeds the streak at 1 only if it is today or
// yesterday; each earlier date must then fall exactly one day before the
// last counted date. The first gap ends the walk. Dates that do not parse
// are ignored.
func CurrentStreak(dates []string, today string) int {
	days := sortedDesc(dates)
	if len(days) == 0 {
		return 0
	}

	yesterday, err := utils.AddDays(today, -1)
	if err != nil {
		return 0
	}
	if days[0] != today && days[0] != yesterday {
		return 0
	}

	streak := 1
	expected, _ := utils.AddDays(days[0], -1)
	for _, day := range days[1:] {
		if day != expected {
			break
		}
		streak++
		expected, _ = utils.AddDays(day, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive days in dates
func LongestStreak(dates []string) int {
	days := sortedDesc(dates)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := len(days) - 2; i >= 0; i-- {
		if gap, err := utils.DaysBetween(days[i+1], days[i]); err == nil && gap == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// Project computes the cached fields of a habit from its log as of today.
// DoneAt is the creation time of today's log.
func Project(logs []models.HabitLog, today string) models.Derived {
	dates := make([]string, 0, len(logs))
	var d models.Derived
	for _, l := range logs {
		dates = append(dates, l.Date)
		if l.Date == today {
			doneAt := l.CreatedAt
			d.IsDone = true
			d.DoneAt = &doneAt
		}
	}
	d.Streak = CurrentStreak(dates, today)
	return d
}

// sortedDesc returns the valid, distinct dates newest first
func sortedDesc(dates []string) []string {
	seen := make(map[string]struct{}, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, dup := seen[d]; dup || !utils.ValidateDate(d) {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	// YYYY-MM-DD sorts lexically in date order
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func logDates(logs []models.HabitLog) []string {
	dates := make([]string, len(logs))
	for i, l := range logs {
		dates[i] = l.Date
	}
	return dates
}
