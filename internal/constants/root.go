package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "habitlog"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/habitlog/habitlog.db"
	Version            = "v0.1.0"

	// EnvConnection holds a PostgreSQL connection string when the keyring is not used
	EnvConnection = "HABITLOG_DB_CONNECTION"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitlog-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "habitlog-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.habitlog"

	// Habit field limits, enforced at the input boundary
	MaxHabitNameLen = 64
	MaxHabitGoalLen = 256
	MaxHabitIconLen = 32
	MaxLogNoteLen   = 1024
)

// Session States
const (
	StateHabits SessionState = iota
	StateAddHabit
	StateConfirmDelete
)
