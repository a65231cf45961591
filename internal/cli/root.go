package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitlog/internal/auth"
	"github.com/julianstephens/habitlog/internal/backup"
	"github.com/julianstephens/habitlog/internal/cache"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/events"
	"github.com/julianstephens/habitlog/internal/habitlog"
	"github.com/julianstephens/habitlog/internal/habits"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/models"
	"github.com/julianstephens/habitlog/internal/notifier"
	"github.com/julianstephens/habitlog/internal/storage"
	"github.com/julianstephens/habitlog/internal/storage/sqlite"
	"github.com/julianstephens/habitlog/internal/utils"
)

// Context is handed to every command. It owns the event bus and everything
// subscribed to it.
type Context struct {
	Store   storage.Provider
	Session auth.Session
	Clock   *utils.Clock
	Bus     *events.Bus
	Engine  *habitlog.Engine
	Habits  *habits.Service
	Cache   *cache.Cache

	// Sender delivers milestone notifications; nil disables them
	Sender notifier.Sender

	settings   models.Settings
	milestones *notifier.Milestones
}

// NewContext wires the habit core over store for the session's user
func NewContext(store storage.Provider, session auth.Session, clock *utils.Clock) *Context {
	bus := events.NewBus()
	engine := habitlog.NewEngine(store, clock)
	svc := habits.NewService(store, engine, bus)
	return &Context{
		Store:    store,
		Session:  session,
		Clock:    clock,
		Bus:      bus,
		Engine:   engine,
		Habits:   svc,
		Cache:    cache.New(svc, bus, clock.Now),
		settings: models.DefaultSettings(),
	}
}

// Start reads persisted settings once the store is loaded: the clock is
// pinned to the stored timezone and milestone notifications are started.
func (c *Context) Start() error {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := c.ApplySettings(settings); err != nil {
		return err
	}
	if c.Sender != nil && c.milestones == nil {
		c.milestones = notifier.Watch(c.Bus, c.Sender, c.notificationsEnabled)
	}
	return nil
}

// ApplySettings makes settings effective for the rest of the process
func (c *Context) ApplySettings(settings models.Settings) error {
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q in settings: %w", settings.Timezone, err)
	}
	c.Clock.SetLocation(loc)
	c.settings = settings
	return nil
}

// Settings returns the settings last applied
func (c *Context) Settings() models.Settings {
	return c.settings
}

func (c *Context) notificationsEnabled() bool {
	return c.settings.NotificationsEnabled
}

// Close stops subscribers and releases the store
func (c *Context) Close() error {
	if c.milestones != nil {
		c.milestones.Close()
	}
	c.Cache.Close()
	c.Bus.Close()
	return c.Store.Close()
}

// UserID returns the resolved user or errors.ErrNotAuthenticated
func (c *Context) UserID() (string, error) {
	return c.Session.RequireUser()
}

// IsSQLite reports whether the store is a local SQLite file
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// Backups returns the backup manager of a SQLite store
func (c *Context) Backups() (*backup.Manager, error) {
	if !c.IsSQLite() {
		return nil, errors.New("backups are only supported with SQLite storage")
	}
	return backup.NewManager(c.Store.GetConfigPath()), nil
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	mgr, err := c.Backups()
	if err != nil {
		return
	}
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// FindHabit resolves ref to one of the user's habits by id, id prefix of at
// least 8 characters, or case-insensitive name
func (c *Context) FindHabit(ctx context.Context, ref string) (models.Habit, error) {
	userID, err := c.UserID()
	if err != nil {
		return models.Habit{}, err
	}
	all, err := c.Cache.ListHabits(ctx, userID)
	if err != nil {
		return models.Habit{}, err
	}

	ref = strings.TrimSpace(ref)
	var matches []models.Habit
	for _, h := range all {
		switch {
		case h.ID == ref:
			return h, nil
		case strings.EqualFold(h.Name, ref):
			matches = append(matches, h)
		case len(ref) >= 8 && strings.HasPrefix(h.ID, ref):
			matches = append(matches, h)
		}
	}

	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, apperr.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("%q matches %d habits, use the habit id: %w", ref, len(matches), apperr.ErrInvalidArgument)
	}
}

// ShortID abbreviates a habit id for display
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// StatusMark renders a completion flag
func StatusMark(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}
