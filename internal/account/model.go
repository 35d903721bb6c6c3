package account

import "time"

// Account represents a community member's account.
type Account struct {
	ID                  string
	Username            string
	DisplayName         string
	PasswordHash        string
	Roles               Roles
	IsDeleted           bool
	CanLogin            bool
	HideFromSuggestions bool
	IsSentinel          bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Addressable reports whether the account may be shown as a normal profile.
func (a *Account) Addressable() bool {
	return !a.IsDeleted && !a.IsSentinel
}

// Sentinel account identity. The ID itself is generated on first creation.
const (
	SentinelUsername    = "deleted-account"
	SentinelDisplayName = "Deleted account"
)
