package account

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/notepid/lexcircle/internal/dbtest"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

func TestCreateHashesPassword(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(dbtest.Open(t).DB)

	a, err := repo.Create(ctx, "alice", "s3cret", "Alice Advocate", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, "user,admin", a.Roles.String())
	assert.True(t, a.CanLogin)

	_, err = repo.Create(ctx, "ALICE", "other", "")
	require.ErrorIs(t, err, ErrUsernameTaken)

	assert.NotEqual(t, "s3cret", a.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("s3cret")))

	require.NoError(t, repo.UpdatePassword(ctx, a.ID, "n3w"))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("n3w")))
}

func TestCreateRejectsBadUsername(t *testing.T) {
	repo := NewRepo(dbtest.Open(t).DB)
	_, err := repo.Create(context.Background(), "deleted-account", "pw", "")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestMarkDeletedHidesProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(dbtest.Open(t).DB)

	a, err := repo.Create(ctx, "bob", "pw", "")
	require.NoError(t, err)

	already, err := repo.MarkDeleted(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = repo.MarkDeleted(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, already)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.False(t, got.CanLogin)
	assert.True(t, got.HideFromSuggestions)

	_, err = repo.GetProfile(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.MarkDeleted(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSuggestionsSkipHiddenAndDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(dbtest.Open(t).DB)

	self, err := repo.Create(ctx, "self", "pw", "")
	require.NoError(t, err)
	visible, err := repo.Create(ctx, "visible", "pw", "")
	require.NoError(t, err)
	shy, err := repo.Create(ctx, "shy", "pw", "")
	require.NoError(t, err)
	gone, err := repo.Create(ctx, "gone", "pw", "")
	require.NoError(t, err)

	require.NoError(t, repo.SetHideFromSuggestions(ctx, shy.ID, true))
	_, err = repo.MarkDeleted(ctx, gone.ID)
	require.NoError(t, err)
	_, err = repo.EnsureSentinel(ctx)
	require.NoError(t, err)

	got, err := repo.Suggestions(ctx, self.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, visible.ID, got[0].ID)
}

func TestEnsureSentinelIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(dbtest.Open(t).DB)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := repo.EnsureSentinel(ctx)
			if assert.NoError(t, err) {
				ids[i] = s.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	s, err := repo.Sentinel(ctx)
	require.NoError(t, err)
	assert.True(t, s.IsSentinel)
	assert.False(t, s.CanLogin)
	assert.False(t, s.Addressable())

	_, err = repo.GetProfile(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRepairRoles(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := NewRepo(database.DB)

	a, err := repo.Create(ctx, "carol", "pw", "")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "dave", "pw", "", RolePremium)
	require.NoError(t, err)

	// Simulate hand-assembled strings written before normalization existed.
	_, err = database.Exec(`UPDATE accounts SET role = 'moderator' WHERE id = ?`, a.ID)
	require.NoError(t, err)

	fixed, err := repo.RepairRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "user,moderator", got.Roles.String())

	got, err = repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "user,premium", got.Roles.String())
}

func TestSetRolesRejectsUnknownTags(t *testing.T) {
	ctx := context.Background()
	repo := NewRepo(dbtest.Open(t).DB)

	a, err := repo.Create(ctx, "erin", "pw", "")
	require.NoError(t, err)

	require.NoError(t, repo.SetRoles(ctx, a.ID, RoleAdmin, RolePremium))
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "user,premium,admin", got.Roles.String())

	err = repo.SetRoles(ctx, a.ID, RoleModerator, Role("judge"))
	require.ErrorIs(t, err, ErrInvalid)
	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "user,premium,admin", got.Roles.String(), "a rejected update changes nothing")
}
