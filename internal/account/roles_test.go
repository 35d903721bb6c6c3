package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []Role
		want string
	}{
		{name: "empty gets base tag", in: nil, want: "user"},
		{name: "base only", in: []Role{RoleUser}, want: "user"},
		{name: "missing base tag is added", in: []Role{RoleAdmin}, want: "user,admin"},
		{name: "reordered", in: []Role{RoleAdmin, RolePremium, RoleUser, RoleModerator}, want: "user,premium,moderator,admin"},
		{name: "duplicates collapse", in: []Role{RolePremium, RolePremium, RoleUser}, want: "user,premium"},
		{name: "case and space tolerant", in: []Role{" Moderator "}, want: "user,moderator"},
		{name: "unknown dropped", in: []Role{"superuser", RolePremium}, want: "user,premium"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeRoles(tt.in...))
		})
	}
}

func TestParseRolesIsTotal(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", ",", "admin", "garbage,,premium", "user,user", "ADMIN , user"} {
		roles := ParseRoles(s)
		assert.True(t, roles.Has(RoleUser), "base tag missing for %q", s)
		assert.Equal(t, RoleUser, roles[0], "base tag not first for %q", s)
	}
}

func TestParseRolesInvertsNormalize(t *testing.T) {
	t.Parallel()

	sets := [][]Role{
		nil,
		{RolePremium},
		{RoleModerator, RoleAdmin},
		{RoleAdmin, RoleModerator, RolePremium, RoleUser},
	}
	for _, set := range sets {
		encoded := NormalizeRoles(set...)
		assert.Equal(t, encoded, ParseRoles(encoded).String())
		for _, r := range set {
			assert.True(t, ParseRoles(encoded).Has(r))
		}
	}
}
