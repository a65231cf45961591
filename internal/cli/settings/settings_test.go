package settings

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitlog/internal/auth"
	"github.com/julianstephens/habitlog/internal/cli"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/storage/sqlite"
	"github.com/julianstephens/habitlog/internal/utils"
)

func setupTestDB(t *testing.T) *cli.Context {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	ctx := cli.NewContext(store, auth.Session{UserID: "alice"}, utils.FixedClock(time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)))
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("failed to close context: %v", err)
		}
	})
	if err := ctx.Start(); err != nil {
		t.Fatalf("failed to start context: %v", err)
	}
	return ctx
}

func TestSettingsCmd_List(t *testing.T) {
	ctx := setupTestDB(t)

	if err := (&SettingsCmd{List: true}).Run(ctx); err != nil {
		t.Errorf("settings list failed: %v", err)
	}
}

func TestSettingsCmd_UpdateTimezone(t *testing.T) {
	ctx := setupTestDB(t)

	tz := "Asia/Tokyo"
	if err := (&SettingsCmd{Timezone: &tz}).Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	stored, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get updated settings: %v", err)
	}
	if stored.Timezone != tz {
		t.Errorf("expected timezone %q, got %q", tz, stored.Timezone)
	}

	// 23:30 UTC is already the next morning in Tokyo
	if got := ctx.Clock.Today(); got != "2024-01-16" {
		t.Errorf("expected clock to follow the new timezone, today = %s", got)
	}
}

func TestSettingsCmd_UpdateStatsAndNotifications(t *testing.T) {
	ctx := setupTestDB(t)

	days, off := 14, false
	if err := (&SettingsCmd{StatsWindowDays: &days, NotificationsEnabled: &off}).Run(ctx); err != nil {
		t.Fatalf("settings update failed: %v", err)
	}

	stored, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get updated settings: %v", err)
	}
	if stored.StatsWindowDays != 14 || stored.NotificationsEnabled {
		t.Errorf("unexpected settings after update: %+v", stored)
	}
	if ctx.Settings().StatsWindowDays != 14 {
		t.Errorf("applied settings not refreshed: %+v", ctx.Settings())
	}
}

func TestSettingsCmd_RejectsInvalid(t *testing.T) {
	ctx := setupTestDB(t)

	tests := []struct {
		name string
		cmd  SettingsCmd
	}{
		{name: "unknown timezone", cmd: SettingsCmd{Timezone: ptr("Mars/Olympus")}},
		{name: "zero stats window", cmd: SettingsCmd{StatsWindowDays: ptr(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Run(ctx)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}

	stored, err := ctx.Store.GetSettings()
	if err != nil {
		t.Fatalf("failed to get settings: %v", err)
	}
	if stored.Timezone == "Mars/Olympus" || stored.StatsWindowDays == 0 {
		t.Errorf("invalid settings were saved: %+v", stored)
	}
}

func ptr[T any](v T) *T { return &v }
