package habits

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitlog/internal/cli"
)

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	h, err := ctx.FindHabit(bg, c.Habit)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %s?", label(h))).
			Description("Its whole completion history is deleted with it.").
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Delete cancelled.")
			return nil
		}
	}

	// Deletion cannot be undone from the CLI; keep a copy first
	ctx.PerformAutomaticBackup()

	if err := ctx.Cache.DeleteHabit(bg, h.UserID, h.ID); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted habit: %s\n", label(h))
	if ctx.IsSQLite() {
		fmt.Println("  A backup was taken first; see 'habitlog backup list'.")
	}
	return nil
}
