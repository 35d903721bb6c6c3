package group

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lexcircle/internal/dbtest"
)

// seedAccounts inserts bare account rows so membership foreign keys hold.
func seedAccounts(t *testing.T, sqlDB *sql.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := sqlDB.Exec(`INSERT INTO accounts (id, username, created_at, updated_at) VALUES (?, ?, 0, 0)`, id, id)
		require.NoError(t, err)
	}
}

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	database := dbtest.Open(t)
	seedAccounts(t, database.DB, "u1", "u2", "u3")
	return NewRepo(database.DB)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.Create(ctx, "Appellate Practice", "u1", "u2", "u1")
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)
	assert.Empty(t, g.HiddenFor)
	assert.Empty(t, g.HistoryPurgedFor)

	got, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Appellate Practice", got.Name)
	assert.True(t, got.IsMember("u1"))
	assert.True(t, got.IsMember("u2"))
	assert.False(t, got.IsMember("u3"))

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Create(ctx, "  ")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.Create(ctx, "Torts", "u1")
	require.NoError(t, err)

	require.NoError(t, repo.AddMember(ctx, g.ID, "u2"))
	require.NoError(t, repo.AddMember(ctx, g.ID, "u2"))
	ok, err := repo.IsMember(ctx, g.ID, "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RemoveMember(ctx, g.ID, "u2"))
	require.NoError(t, repo.RemoveMember(ctx, g.ID, "u2"))
	ok, err = repo.IsMember(ctx, g.ID, "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, repo.AddMember(ctx, "missing", "u1"), ErrNotFound)
	require.ErrorIs(t, repo.RemoveMember(ctx, "missing", "u1"), ErrNotFound)
}

func TestLedgerEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.Create(ctx, "Tax", "u1", "u2")
	require.NoError(t, err)

	t1 := time.Unix(100, 0).UTC()
	t2 := time.Unix(200, 0).UTC()

	require.NoError(t, repo.SetLedgerEntry(ctx, g.ID, "u1", LedgerHidden, t1))
	require.NoError(t, repo.SetLedgerEntry(ctx, g.ID, "u1", LedgerPurged, t2))

	got, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, t1.Equal(got.HiddenFor["u1"]))
	assert.True(t, t2.Equal(got.HistoryPurgedFor["u1"]))
	_, ok := got.HiddenFor["u2"]
	assert.False(t, ok)

	// Entries never move backwards.
	require.NoError(t, repo.SetLedgerEntry(ctx, g.ID, "u1", LedgerPurged, t1))
	got, err = repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, t2.Equal(got.HistoryPurgedFor["u1"]))

	removed, err := repo.ClearLedgerEntry(ctx, g.ID, "u1", LedgerHidden)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.ClearLedgerEntry(ctx, g.ID, "u1", LedgerHidden)
	require.NoError(t, err)
	assert.False(t, removed)

	require.ErrorIs(t, repo.SetLedgerEntry(ctx, "missing", "u1", LedgerHidden, t1), ErrNotFound)
	_, err = repo.ClearLedgerEntry(ctx, "missing", "u1", LedgerHidden)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.SetLedgerEntry(ctx, g.ID, "u1", "archived", t1), ErrInvalid)
}

func TestStaleLedgerEntrySurvivesRemoval(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.Create(ctx, "IP", "u1", "u2")
	require.NoError(t, err)
	require.NoError(t, repo.SetLedgerEntry(ctx, g.ID, "u2", LedgerHidden, time.Unix(5, 0)))
	require.NoError(t, repo.RemoveMember(ctx, g.ID, "u2"))

	got, err := repo.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.IsMember("u2"))
	assert.Contains(t, got.HiddenFor, "u2")
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, err := repo.Create(ctx, "A", "u1", "u2")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "B", "u2")
	require.NoError(t, err)
	require.NoError(t, repo.SetLedgerEntry(ctx, a.ID, "u1", LedgerHidden, time.Unix(10, 0)))

	list, err := repo.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, 2, list[0].MemberCount)
	assert.True(t, list[0].Hidden)
	assert.Nil(t, list[0].PurgedAt)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConcurrentSetAndClearEndInWellDefinedState(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.Create(ctx, "Race", "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.SetLedgerEntry(ctx, g.ID, "u1", LedgerHidden, time.Unix(int64(i), 0)))
		}(i)
		go func() {
			defer wg.Done()
			_, err := repo.ClearLedgerEntry(ctx, g.ID, "u1", LedgerHidden)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := repo.Ledger(ctx, g.ID)
	require.NoError(t, err)
	// Either hidden with a valid instant or not hidden at all.
	assert.LessOrEqual(t, len(entries), 1)
	for _, e := range entries {
		assert.Equal(t, LedgerHidden, e.Kind)
		assert.GreaterOrEqual(t, e.At.Unix(), int64(0))
		assert.LessOrEqual(t, e.At.Unix(), int64(9))
	}
}
