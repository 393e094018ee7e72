package models

import "regexp"

// Settings limits
const (
	MaxSettingValueLength = 256
	SettingKeyTheme       = "theme"
)

var settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ValidSettingKey reports whether key may be stored in the settings table
func ValidSettingKey(key string) bool {
	return settingKeyPattern.MatchString(key)
}

// UserSettings is the merged view of a user's preferences: the theme from the
// user row plus free-form key/value pairs.
type UserSettings struct {
	Theme  Theme             `json:"theme"`
	Values map[string]string `json:"values"`
}
