package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/models"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	List     HabitListCmd     `cmd:"" help:"List habits with today's status." default:"1"`
	Show     HabitShowCmd     `cmd:"" help:"Show one habit."`
	Edit     HabitEditCmd     `cmd:"" help:"Edit a habit's name, goal or icon."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit and its log."`
	Toggle   HabitToggleCmd   `cmd:"" help:"Mark or unmark a habit as done today."`
	Log      HabitLogCmd      `cmd:"" help:"Record a completion on a past day."`
	Unlog    HabitUnlogCmd    `cmd:"" help:"Remove the completion of a day."`
	Logs     HabitLogsCmd     `cmd:"" help:"List a habit's completions."`
	Note     HabitNoteCmd     `cmd:"" help:"Set the note of a day's completion."`
	Stats    HabitStatsCmd    `cmd:"" help:"Show completion statistics."`
	Calendar HabitCalendarCmd `cmd:"" help:"Show a month of completions."`
	History  HabitHistoryCmd  `cmd:"" help:"Show recent completions of all habits."`
	Recalc   HabitRecalcCmd   `cmd:"" help:"Recompute cached streaks from the log."`
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
	Goal string `help:"What completing the habit means."`
	Icon string `help:"Emoji or short label shown next to the name."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	h, err := ctx.Cache.CreateHabit(context.Background(), userID, models.CreateHabit{
		Name: c.Name,
		Goal: c.Goal,
		Icon: c.Icon,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Added habit: %s (%s)\n", label(h), cli.ShortID(h.ID))
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}
	longest, err := ctx.Engine.CalculateLongestStreak(bg, h.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n\n", label(h))
	fmt.Printf("  ID:             %s\n", h.ID)
	if h.Goal != "" {
		fmt.Printf("  Goal:           %s\n", h.Goal)
	}
	fmt.Printf("  Done today:     %s\n", yesNo(h.IsDone))
	if h.DoneAt != nil {
		fmt.Printf("  Done at:        %s\n", h.DoneAt.In(ctx.Clock.Location()).Format("15:04"))
	}
	fmt.Printf("  Current streak: %s\n", days(h.Streak))
	fmt.Printf("  Longest streak: %s\n", days(longest))
	fmt.Printf("  Created:        %s\n", h.CreatedAt.In(ctx.Clock.Location()).Format("2006-01-02 15:04"))
	return nil
}

type HabitEditCmd struct {
	Habit string  `arg:"" help:"Habit name or id."`
	Name  *string `help:"New name."`
	Goal  *string `help:"New goal."`
	Icon  *string `help:"New icon."`
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	patch := models.HabitPatch{Name: c.Name, Goal: c.Goal, Icon: c.Icon}
	if patch.IsEmpty() {
		fmt.Println("No changes specified. Use --name, --goal or --icon.")
		return nil
	}

	updated, err := ctx.Cache.UpdateHabit(bg, h.UserID, h.ID, patch)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Updated habit: %s\n", label(updated))
	return nil
}

type HabitRecalcCmd struct{}

func (c *HabitRecalcCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	n, err := ctx.Habits.RecalculateAllStreaks(context.Background(), userID)
	if err != nil {
		return err
	}

	if n == 0 {
		fmt.Println("All streaks are up to date.")
	} else {
		fmt.Printf("✓ Recalculated %d habit(s).\n", n)
	}
	return nil
}

func label(h models.Habit) string {
	if h.Icon == "" {
		return h.Name
	}
	return h.Icon + " " + h.Name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
