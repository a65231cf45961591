package habits

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitlog/internal/cli"
)

var (
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	streakStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type HabitListCmd struct {
	JSON bool `help:"Print habits as JSON."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	habits, err := ctx.Cache.ListHabits(context.Background(), userID)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(habits)
	}

	if len(habits) == 0 {
		fmt.Println("No habits found. Add one with 'habitlog habit add <name>'.")
		return nil
	}

	fmt.Printf("Habits for %s:\n\n", ctx.Clock.Today())
	done := 0
	for _, h := range habits {
		mark := cli.StatusMark(h.IsDone)
		if h.IsDone {
			mark = doneStyle.Render(mark)
			done++
		}
		streak := ""
		if h.Streak > 0 {
			streak = streakStyle.Render(fmt.Sprintf(" 🔥 %d", h.Streak))
		}
		fmt.Printf("%s %s%s  %s\n", mark, label(h), streak, idStyle.Render(cli.ShortID(h.ID)))
	}

	fmt.Printf("\n%s\nRecorded: %d/%d\n", strings.Repeat("-", 20), done, len(habits))
	return nil
}
