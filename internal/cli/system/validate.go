package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/validation"
)

type ValidateCmd struct {
	Fix bool `help:"Recalculate the cached streak of habits that drifted from their log."`
}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	bg := context.Background()

	snapshots, err := ctx.Habits.Inspect(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to read habits: %w", err)
	}

	result := validation.New().ValidateHabits(snapshots, ctx.Clock.Today())
	fmt.Print(result.FormatReport())
	if !result.HasConflicts() {
		fmt.Println()
		return nil
	}

	if !c.Fix {
		return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
	}

	ctx.PerformAutomaticBackup()

	actions := validation.AutoFixStaleHabits(result.Conflicts, func(habitID string) error {
		_, _, err := ctx.Habits.RecalculateStreak(bg, userID, habitID)
		return err
	})
	if len(actions) == 0 {
		fmt.Println("\nNo conflicts can be fixed automatically.")
		return fmt.Errorf("%d conflict(s) found", len(result.Conflicts))
	}

	fmt.Println("\nFixes applied:")
	for _, a := range actions {
		fmt.Printf("- %s\n", a.Action)
	}

	// Re-check so that conflicts needing manual repair still fail the command
	snapshots, err = ctx.Habits.Inspect(bg, userID)
	if err != nil {
		return fmt.Errorf("failed to read habits: %w", err)
	}
	after := validation.New().ValidateHabits(snapshots, ctx.Clock.Today())
	if after.HasConflicts() {
		return fmt.Errorf("%d conflict(s) remain", len(after.Conflicts))
	}
	return nil
}
