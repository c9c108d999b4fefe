package model

import "time"

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message surfaced to the user, such as the
// outcome of a command or a failed background sync.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether n carries no message.
func (n Notification) IsZero() bool {
	return n.Message == ""
}

// Theme names accepted by the display preference.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences are the per-user display settings stored apart from the
// board snapshot so they survive a snapshot reset.
type Preferences struct {
	LastBoardID string `json:"lastBoardId"`
	Theme       string `json:"theme"`
}
