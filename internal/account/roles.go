package account

import "strings"

// Role is a single tag in an account's composite role string.
type Role string

const (
	RoleUser      Role = "user" // base tag, present on every account
	RolePremium   Role = "premium"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// RoleDelimiter joins tags in a stored role string.
const RoleDelimiter = ","

// canonicalOrder is the only order tags are ever stored in.
var canonicalOrder = []Role{RoleUser, RolePremium, RoleModerator, RoleAdmin}

// Roles is a decoded, canonically ordered role set.
type Roles []Role

// NormalizeRoles encodes tags as a stored role string. The base tag is always
// included; duplicates and unknown tags are dropped.
func NormalizeRoles(tags ...Role) string {
	seen := make(map[Role]bool, len(tags)+1)
	seen[RoleUser] = true
	for _, t := range tags {
		seen[Role(strings.ToLower(strings.TrimSpace(string(t))))] = true
	}

	parts := make([]string, 0, len(canonicalOrder))
	for _, r := range canonicalOrder {
		if seen[r] {
			parts = append(parts, string(r))
		}
	}
	return strings.Join(parts, RoleDelimiter)
}

// ParseRoles decodes a stored role string. It never fails: empty or unknown
// segments are skipped and the base tag is always present.
func ParseRoles(s string) Roles {
	var tags []Role
	for _, part := range strings.Split(s, RoleDelimiter) {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, Role(part))
		}
	}

	normalized := NormalizeRoles(tags...)
	out := make(Roles, 0, len(canonicalOrder))
	for _, part := range strings.Split(normalized, RoleDelimiter) {
		out = append(out, Role(part))
	}
	return out
}

// Has reports whether the set contains role.
func (r Roles) Has(role Role) bool {
	for _, x := range r {
		if x == role {
			return true
		}
	}
	return false
}

// String returns the canonical stored form.
func (r Roles) String() string {
	return NormalizeRoles(r...)
}

// IsKnownRole reports whether s names one of the canonical tags.
func IsKnownRole(s string) bool {
	for _, r := range canonicalOrder {
		if string(r) == s {
			return true
		}
	}
	return false
}
