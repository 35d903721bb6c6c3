package message

import "time"

// Message is a single message posted to a group.
type Message struct {
	ID         string
	GroupID    string
	AuthorID   string
	AuthorName string // joined from accounts
	Content    string
	CreatedAt  time.Time
}

// Query selects messages of one group. Results are always ordered by
// creation time ascending.
type Query struct {
	// After, when set, keeps only messages created strictly after it.
	After *time.Time
	// Before, when set, keeps only messages created strictly before it.
	Before *time.Time
	// Limit keeps only the newest Limit matching messages; zero means no limit.
	Limit int
}
