package habits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/constants"
	"github.com/julianstephens/habitlog/internal/utils"
)

type HabitStatsCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Days  int    `help:"Size of the trailing window (default: stats_window_days setting)."`
}

func (c *HabitStatsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	window := c.Days
	if window <= 0 {
		window = ctx.Settings().StatsWindowDays
	}

	stats, err := ctx.Habits.GetStats(bg, h.UserID, h.ID, window)
	if err != nil {
		return err
	}

	fmt.Printf("%s, last %d days:\n\n", label(h), stats.TotalDays)
	fmt.Printf("  Completed:      %d/%d\n", stats.CompletedDays, stats.TotalDays)
	fmt.Printf("  Completion:     %.0f%%\n", stats.CompletionRate*100)
	fmt.Printf("  Current streak: %s\n", days(stats.CurrentStreak))
	fmt.Printf("  Longest streak: %s\n", days(stats.LongestStreak))
	return nil
}

type HabitCalendarCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Month string `help:"Month to show (YYYY-MM, default: current month)."`
}

func (c *HabitCalendarCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	month := ctx.Clock.Now()
	if c.Month != "" {
		month, err = time.Parse("2006-01", c.Month)
		if err != nil {
			return fmt.Errorf("invalid month format: %s (expected YYYY-MM)", c.Month)
		}
	}

	cal, err := ctx.Habits.GetCalendar(bg, h.UserID, h.ID, month.Year(), int(month.Month()))
	if err != nil {
		return err
	}

	fmt.Printf("%s, %s\n\n", label(h), month.Format("January 2006"))
	fmt.Println(" Mo  Tu  We  Th  Fr  Sa  Su")

	first, err := utils.ParseDate(cal[0].Date)
	if err != nil {
		return err
	}
	// Monday-first offset of day 1
	offset := (int(first.Weekday()) + 6) % 7

	var line strings.Builder
	line.WriteString(strings.Repeat("    ", offset))
	today := ctx.Clock.Today()
	for i, day := range cal {
		cell := fmt.Sprintf(" %2d ", i+1)
		switch {
		case day.Completed:
			cell = doneStyle.Render(fmt.Sprintf(" %2s ", "✓"))
		case day.Date == today:
			cell = streakStyle.Render(cell)
		}
		line.WriteString(cell)
		if (offset+i+1)%7 == 0 {
			fmt.Println(strings.TrimRight(line.String(), " "))
			line.Reset()
		}
	}
	if line.Len() > 0 {
		fmt.Println(strings.TrimRight(line.String(), " "))
	}

	completed := 0
	for _, day := range cal {
		if day.Completed {
			completed++
		}
	}
	fmt.Printf("\nCompleted %d of %d days\n", completed, len(cal))
	return nil
}

type HabitHistoryCmd struct {
	Days int `help:"Number of days to show." default:"14"`
}

func (c *HabitHistoryCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	bg := context.Background()
	habits, err := ctx.Cache.ListHabits(bg, userID)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	end := ctx.Clock.Today()
	start, err := utils.AddDays(end, -(c.Days - 1))
	if err != nil {
		return err
	}

	const nameWidth = 20
	fmt.Printf("Habit history (last %d days):\n\n", c.Days)
	fmt.Print(strings.Repeat(" ", nameWidth))
	for i := 0; i < c.Days; i++ {
		day, _ := utils.AddDays(start, i)
		t, _ := time.Parse(constants.DateFormat, day)
		fmt.Printf(" %5s", t.Format("01/02"))
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", nameWidth+6*c.Days))

	for _, h := range habits {
		name := []rune(h.Name)
		if len(name) > nameWidth {
			name = append(name[:nameWidth-3], []rune("...")...)
		}
		fmt.Printf("%-*s", nameWidth, string(name))

		logs, err := ctx.Habits.GetLogs(bg, userID, h.ID, start, end)
		if err != nil {
			return err
		}
		done := make(map[string]bool, len(logs))
		for _, log := range logs {
			done[log.Date] = true
		}

		for i := 0; i < c.Days; i++ {
			day, _ := utils.AddDays(start, i)
			if done[day] {
				fmt.Print("  x   ")
			} else {
				fmt.Print("  .   ")
			}
		}
		fmt.Println()
	}
	return nil
}
