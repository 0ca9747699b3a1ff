package models

// Preferences are the persisted client settings
type Preferences struct {
	DarkMode bool `json:"darkMode"`
}
