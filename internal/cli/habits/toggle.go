package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitlog/internal/cli"
)

type HabitToggleCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Note  string `help:"Optional note stored with today's completion."`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	out, err := ctx.Cache.ToggleToday(bg, h.UserID, h.ID, c.Note)
	if err != nil {
		return err
	}

	if out.Completed {
		fmt.Printf("✓ %s done for %s (streak: %s)\n", label(out.Habit), ctx.Clock.Today(), days(out.Streak))
	} else {
		fmt.Printf("Unmarked %s for %s (streak: %s)\n", label(out.Habit), ctx.Clock.Today(), days(out.Streak))
	}
	return nil
}

type HabitLogCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Day to record (YYYY-MM-DD)." required:""`
	Note  string `help:"Optional note for this entry."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	_, updated, err := ctx.Habits.LogDay(bg, h.UserID, h.ID, c.Date, c.Note)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Logged %s for %s (streak: %s)\n", label(updated), c.Date, days(updated.Streak))
	return nil
}

type HabitUnlogCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Day to clear (YYYY-MM-DD)." required:""`
}

func (c *HabitUnlogCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	updated, err := ctx.Habits.UnlogDay(bg, h.UserID, h.ID, c.Date)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %s for %s (streak: %s)\n", label(updated), c.Date, days(updated.Streak))
	return nil
}
