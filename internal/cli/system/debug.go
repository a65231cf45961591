package system

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/habitlog/internal/cli"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/models"
)

// DebugCmd dumps records exactly as stored. Unlike the habit commands it
// reads past the service, so drifted streaks are shown unreconciled.
type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show database path."`
	DumpHabit    *DebugDumpHabitCmd    `cmd:"" help:"Dump habit data as JSON."`
	DumpLogs     *DebugDumpLogsCmd     `cmd:"" help:"Dump a habit's logs as JSON."`
	DumpSettings *DebugDumpSettingsCmd `cmd:"" help:"Dump settings data as JSON."`
}

func printJSON(what string, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", what, err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON("output", map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

// rawHabit loads a habit from the store and hides other users' habits
func rawHabit(ctx *cli.Context, id string) (models.Habit, error) {
	userID, err := ctx.UserID()
	if err != nil {
		return models.Habit{}, err
	}
	if err := ctx.Store.Load(); err != nil {
		return models.Habit{}, fmt.Errorf("failed to load database: %w", err)
	}

	h, err := ctx.Store.GetHabit(context.Background(), id)
	if err != nil || h.UserID != userID {
		if err == nil || errors.Is(err, apperr.ErrNotFound) {
			return models.Habit{}, fmt.Errorf("habit not found: %s", id)
		}
		return models.Habit{}, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

type DebugDumpHabitCmd struct {
	ID string `arg:"" help:"ID of the habit to dump."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *cli.Context) error {
	h, err := rawHabit(ctx, cmd.ID)
	if err != nil {
		return err
	}
	return printJSON("habit", h)
}

type DebugDumpLogsCmd struct {
	ID string `arg:"" help:"ID of the habit whose logs to dump."`
}

func (cmd *DebugDumpLogsCmd) Run(ctx *cli.Context) error {
	h, err := rawHabit(ctx, cmd.ID)
	if err != nil {
		return err
	}
	logs, err := ctx.Store.GetLogsByHabit(context.Background(), h.ID)
	if err != nil {
		return fmt.Errorf("failed to get logs: %w", err)
	}
	return printJSON("logs", logs)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON("settings", settings)
}
