package habitlog

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/utils"
)

const today = "2024-01-15"

func TestCurrentStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{name: "no logs", dates: nil, want: 0},
		{name: "today only", dates: []string{"2024-01-15"}, want: 1},
		{name: "yesterday only", dates: []string{"2024-01-14"}, want: 1},
		{name: "most recent two days ago", dates: []string{"2024-01-13", "2024-01-12"}, want: 0},
		{name: "today and two prior days", dates: []string{"2024-01-15", "2024-01-14", "2024-01-13"}, want: 3},
		{name: "yesterday and two prior days", dates: []string{"2024-01-14", "2024-01-13", "2024-01-12"}, want: 3},
		{name: "gap after today", dates: []string{"2024-01-15", "2024-01-13", "2024-01-12"}, want: 1},
		{name: "gap after yesterday", dates: []string{"2024-01-14", "2024-01-12"}, want: 1},
		{name: "unsorted input", dates: []string{"2024-01-13", "2024-01-15", "2024-01-14"}, want: 3},
		{name: "duplicates and junk ignored", dates: []string{"2024-01-15", "2024-01-15", "bad", "2024-01-14"}, want: 2},
		{name: "future log does not count", dates: []string{"2024-01-16", "2024-01-15"}, want: 0},
		{name: "across month boundary", dates: []string{"2024-03-01", "2024-02-29", "2024-02-28"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := today
			if tt.name == "across month boundary" {
				day = "2024-03-01"
			}
			assert.Equal(t, tt.want, CurrentStreak(tt.dates, day))
		})
	}
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  int
	}{
		{name: "no logs", dates: nil, want: 0},
		{name: "single log", dates: []string{"2023-06-01"}, want: 1},
		{name: "two runs", dates: []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-10", "2024-01-11"}, want: 3},
		{name: "later run longer", dates: []string{"2024-01-01", "2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08"}, want: 4},
		{name: "unsorted with duplicates", dates: []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-02"}, want: 3},
		{name: "across year boundary", dates: []string{"2023-12-30", "2023-12-31", "2024-01-01"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongestStreak(tt.dates))
		})
	}
}

func TestLongestStreakNeverBelowCurrent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var dates []string
		for d := 0; d < 40; d++ {
			if rng.Intn(3) > 0 {
				day, err := utils.AddDays(today, -d)
				require.NoError(t, err)
				dates = append(dates, day)
			}
		}
		current := CurrentStreak(dates, today)
		longest := LongestStreak(dates)
		require.GreaterOrEqual(t, longest, current, "dates=%v", dates)
	}
}

func TestProject(t *testing.T) {
	created := time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)
	logs := []models.HabitLog{
		{Date: "2024-01-14"},
		{Date: "2024-01-15", CreatedAt: created},
	}

	d := Project(logs, today)
	assert.Equal(t, 2, d.Streak)
	assert.True(t, d.IsDone)
	require.NotNil(t, d.DoneAt)
	assert.True(t, d.DoneAt.Equal(created))

	d = Project(logs[:1], today)
	assert.Equal(t, 1, d.Streak)
	assert.False(t, d.IsDone)
	assert.Nil(t, d.DoneAt)

	assert.Equal(t, models.Derived{}, Project(nil, today))
}
