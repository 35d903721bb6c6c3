package conversation

import (
	"time"

	"github.com/notepid/lexcircle/internal/group"
)

// ResolveCutoff returns the instant up to which userID must not see g's
// messages, and false when there is no restriction. When the member has both
// hidden and purged, the later instant wins. Membership is not checked: stale
// ledger entries still produce a cutoff.
func ResolveCutoff(g *group.Group, userID string) (time.Time, bool) {
	hiddenAt, hidden := g.HiddenFor[userID]
	purgedAt, purged := g.HistoryPurgedFor[userID]

	switch {
	case hidden && purged:
		if purgedAt.After(hiddenAt) {
			return purgedAt, true
		}
		return hiddenAt, true
	case hidden:
		return hiddenAt, true
	case purged:
		return purgedAt, true
	default:
		return time.Time{}, false
	}
}

// Visible reports whether a message created at createdAt passes the cutoff.
// Messages at exactly the cutoff instant are hidden.
func Visible(createdAt, cutoff time.Time, hasCutoff bool) bool {
	return !hasCutoff || createdAt.After(cutoff)
}
