package constants

const (
	SettingTimezone             = "timezone"
	SettingStatsWindowDays      = "stats_window_days"
	SettingNotificationsEnabled = "notifications_enabled"

	// Default Settings Values
	DefaultTimezone             = "Local" // Use system local timezone by default
	DefaultStatsWindowDays      = 30
	DefaultNotificationsEnabled = true
)

// StreakMilestones are the current-streak lengths that trigger a notification.
var StreakMilestones = []int{7, 30, 100, 365}
