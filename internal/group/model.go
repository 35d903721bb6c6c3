package group

import "time"

// LedgerKind names one of the two per-member visibility ledgers.
type LedgerKind string

const (
	// LedgerHidden records when a member hid the conversation.
	LedgerHidden LedgerKind = "hidden"
	// LedgerPurged records when a member purged history from their own view.
	LedgerPurged LedgerKind = "purged"
)

// Group is a messaging group with its membership and visibility ledgers.
// Ledger entries for users no longer in Members are kept but carry no meaning.
type Group struct {
	ID               string
	Name             string
	CreatedAt        time.Time
	Members          map[string]struct{}
	HiddenFor        map[string]time.Time
	HistoryPurgedFor map[string]time.Time
}

// New returns an empty group with initialized ledgers.
func New(id, name string, createdAt time.Time) *Group {
	return &Group{
		ID:               id,
		Name:             name,
		CreatedAt:        createdAt,
		Members:          make(map[string]struct{}),
		HiddenFor:        make(map[string]time.Time),
		HistoryPurgedFor: make(map[string]time.Time),
	}
}

// IsMember reports whether userID is currently in the group.
func (g *Group) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}

// ledger returns the map backing kind.
func (g *Group) ledger(kind LedgerKind) map[string]time.Time {
	if kind == LedgerPurged {
		return g.HistoryPurgedFor
	}
	return g.HiddenFor
}

// Summary is a group as listed for one member.
type Summary struct {
	ID          string
	Name        string
	MemberCount int
	Hidden      bool
	HiddenAt    *time.Time
	PurgedAt    *time.Time
}

// LedgerEntry is a single ledger row, used by admin views.
type LedgerEntry struct {
	UserID string
	Kind   LedgerKind
	At     time.Time
}
