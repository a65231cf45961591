package habits

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitlog/internal/cli"
)

type HabitLogsCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	From  string `help:"First day to include (YYYY-MM-DD)."`
	To    string `help:"Last day to include (YYYY-MM-DD, default: today)."`
}

func (c *HabitLogsCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	logs, err := ctx.Habits.GetLogs(bg, h.UserID, h.ID, c.From, c.To)
	if err != nil {
		return err
	}

	if len(logs) == 0 {
		fmt.Printf("No completions recorded for %s.\n", label(h))
		return nil
	}

	fmt.Printf("Completions of %s (%d):\n\n", label(h), len(logs))
	for _, log := range logs {
		if log.Note != "" {
			fmt.Printf("  %s  %s\n", log.Date, log.Note)
		} else {
			fmt.Printf("  %s\n", log.Date)
		}
	}
	return nil
}

type HabitNoteCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `arg:"" help:"Day of the completion (YYYY-MM-DD)."`
	Note  string `arg:"" help:"Note text; empty clears it." optional:""`
}

func (c *HabitNoteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	if _, err := ctx.Habits.UpdateLogNote(bg, h.UserID, h.ID, c.Date, c.Note); err != nil {
		return err
	}

	if c.Note == "" {
		fmt.Printf("✓ Cleared note on %s for %s\n", label(h), c.Date)
	} else {
		fmt.Printf("✓ Updated note on %s for %s\n", label(h), c.Date)
	}
	return nil
}
