package domain

import "time"

// Notification is an in-app notification row, created for administrators when
// a new account registers.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	Category  string
	Priority  string
	ActionURL string
	Metadata  map[string]any
	Read      bool
	CreatedAt time.Time
}
