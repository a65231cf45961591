package main

import (
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/julianstephens/habitlog/internal/auth"
	"github.com/julianstephens/habitlog/internal/cli"
	"github.com/julianstephens/habitlog/internal/cli/backups"
	"github.com/julianstephens/habitlog/internal/cli/habits"
	"github.com/julianstephens/habitlog/internal/cli/settings"
	"github.com/julianstephens/habitlog/internal/cli/system"
	"github.com/julianstephens/habitlog/internal/constants"
	apperr "github.com/julianstephens/habitlog/internal/errors"
	"github.com/julianstephens/habitlog/internal/logger"
	"github.com/julianstephens/habitlog/internal/notifier"
	"github.com/julianstephens/habitlog/internal/storage"
	"github.com/julianstephens/habitlog/internal/utils"
)

type CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Database path, PostgreSQL connection string, or 'keyring'. PostgreSQL credentials must NOT be embedded in the connection string." type:"string" default:"${default_config}" env:"HABITLOG_CONFIG"`
	User    string `help:"User whose habits are managed (defaults to the OS account)." env:"HABITLOG_USER"`
	Verbose bool   `short:"v" help:"Log debug output to stderr." env:"HABITLOG_DEBUG"`

	Init     system.InitCmd       `cmd:"" help:"Initialize habitlog storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Validate system.ValidateCmd   `cmd:"" help:"Check habits and logs for inconsistencies."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Debug    system.DebugCmd      `cmd:"" help:"Debug commands for troubleshooting."`
	Keyring  system.KeyringCmd    `cmd:"" help:"Manage the connection string stored in the OS keyring."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits and habit tracking."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
}

// logDir keeps logs next to a SQLite database, or in the default config
// directory for PostgreSQL
func logDir(config string, store storage.Provider) string {
	if storage.IsPostgres(config) || config == storage.KeyringConfig || store.GetConfigPath() == "postgresql" {
		dir, err := storage.ExpandHome(filepath.Dir(constants.DefaultConfigPath))
		if err != nil {
			return os.TempDir()
		}
		return dir
	}
	return filepath.Dir(store.GetConfigPath())
}

func run(args []string) error {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name(constants.AppName),
		kong.Description("Local-first habit tracker"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
		},
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	store, err := storage.Open(c.Config)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Debug: c.Verbose, ConfigDir: logDir(c.Config, store)}); err != nil {
		// Logging is best-effort; commands still run without a log file
		logger.UseWriter(os.Stderr, log.WarnLevel)
	}

	clock, err := utils.NewClock(constants.DefaultTimezone)
	if err != nil {
		return err
	}

	appCtx := cli.NewContext(store, auth.Resolve(c.User), clock)
	appCtx.Sender = notifier.NewTray()
	defer func() {
		if err := appCtx.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	// init creates the database, so it is the only command that runs unloaded
	if kctx.Selected() != nil && kctx.Selected().Name != "init" {
		if err := store.Load(); err != nil {
			return err
		}
		if err := appCtx.Start(); err != nil {
			return err
		}
	}

	return kctx.Run(appCtx)
}

func main() {
	_ = godotenv.Load()
	apperr.Fatal(run(os.Args[1:]))
}
