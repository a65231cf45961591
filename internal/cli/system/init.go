package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/storage"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy the current user's habits from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if !ctx.IsSQLite() {
			return errors.New("--force only supports SQLite storage")
		}
		dbPath := ctx.Store.GetConfigPath()
		if c.Source != "" {
			absDB, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDB
			}
			absSource, err := filepath.Abs(c.Source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized habitlog storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Copying data from: %s\n", c.Source)
		if err := c.copyData(context.Background(), ctx, c.Source); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Println("Copy completed successfully!")
	}

	return nil
}

// copyData copies settings plus the session user's habits and their logs.
// Records keep their ids, so running it twice overwrites rather than
// duplicates.
func (c *InitCmd) copyData(ctx context.Context, dst *cli.Context, source string) error {
	userID, err := dst.UserID()
	if err != nil {
		return err
	}

	src, err := storage.Open(source)
	if err != nil {
		return err
	}
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	fmt.Println("  Copying settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := dst.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	fmt.Println("  Copying habits...")
	habits, err := src.GetHabitsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get habits from source: %w", err)
	}
	logCount := 0
	for _, h := range habits {
		if err := dst.Store.PutHabit(ctx, h); err != nil {
			return fmt.Errorf("failed to add habit %s: %w", h.ID, err)
		}
		logs, err := src.GetLogsByHabit(ctx, h.ID)
		if err != nil {
			return fmt.Errorf("failed to get logs of habit %s: %w", h.ID, err)
		}
		for _, l := range logs {
			if err := dst.Store.PutLog(ctx, l); err != nil {
				return fmt.Errorf("failed to add log %s: %w", l.ID, err)
			}
		}
		logCount += len(logs)
	}
	fmt.Printf("    Copied %d habits and %d logs\n", len(habits), logCount)

	return nil
}
