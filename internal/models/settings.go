package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/habitlog/internal/constants"
)

type Settings struct {
	Timezone             string `json:"timezone"`              // IANA timezone name (e.g. "America/New_York", or "Local" for system timezone)
	StatsWindowDays      int    `json:"stats_window_days"`     // default trailing window for habit stats
	NotificationsEnabled bool   `json:"notifications_enabled"` // whether streak milestone notifications are sent
}

// DefaultSettings returns the settings written on first init
func DefaultSettings() Settings {
	return Settings{
		Timezone:             constants.DefaultTimezone,
		StatsWindowDays:      constants.DefaultStatsWindowDays,
		NotificationsEnabled: constants.DefaultNotificationsEnabled,
	}
}

// Values flattens the settings into the key/value rows of the settings table
func (s Settings) Values() map[string]string {
	return map[string]string{
		constants.SettingTimezone:             s.Timezone,
		constants.SettingStatsWindowDays:      strconv.Itoa(s.StatsWindowDays),
		constants.SettingNotificationsEnabled: strconv.FormatBool(s.NotificationsEnabled),
	}
}

// Set assigns a single settings row. Unknown keys are ignored so that
// older binaries can read databases written by newer ones.
func (s *Settings) Set(key, value string) error {
	switch key {
	case constants.SettingTimezone:
		s.Timezone = value
	case constants.SettingStatsWindowDays:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		s.StatsWindowDays = n
	case constants.SettingNotificationsEnabled:
		s.NotificationsEnabled = value == "true"
	}
	return nil
}
