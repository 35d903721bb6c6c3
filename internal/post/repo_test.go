package post

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lexcircle/internal/dbtest"
)

func setup(t *testing.T) *Repo {
	t.Helper()
	database := dbtest.Open(t)
	for _, id := range []string{"alice", "bob", "ghost"} {
		_, err := database.Exec(`INSERT INTO accounts (id, username, display_name, created_at, updated_at)
			VALUES (?, ?, ?, 0, 0)`, id, id, "Name "+id)
		require.NoError(t, err)
	}
	return NewRepo(database.DB)
}

func TestPostsAndComments(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	p, err := repo.Create(ctx, "alice", "Is this contract enforceable?")
	require.NoError(t, err)

	_, err = repo.AddComment(ctx, p.ID, "bob", "Depends on consideration.")
	require.NoError(t, err)
	_, err = repo.AddComment(ctx, p.ID, "alice", "Thanks!")
	require.NoError(t, err)

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)
	assert.Equal(t, "Name alice", got.AuthorName)

	comments, err := repo.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "bob", comments[0].AuthorID)

	posts, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	_, err = repo.AddComment(ctx, "missing", "bob", "hi")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.AddComment(ctx, p.ID, "bob", "")
	require.ErrorIs(t, err, ErrEmpty)
	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReassignCommentAuthor(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	p, err := repo.Create(ctx, "bob", "post")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := repo.AddComment(ctx, p.ID, "alice", "c")
		require.NoError(t, err)
	}

	n, err := repo.ReassignCommentAuthor(ctx, "alice", "ghost", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.ReassignCommentAuthor(ctx, "alice", "ghost", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.ReassignCommentAuthor(ctx, "alice", "ghost", 2)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := repo.CountCommentsByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestReassignPostAuthor(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, "alice", "post")
		require.NoError(t, err)
	}
	kept, err := repo.Create(ctx, "bob", "mine")
	require.NoError(t, err)

	n, err := repo.ReassignPostAuthor(ctx, "alice", "ghost", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.ReassignPostAuthor(ctx, "alice", "ghost", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := repo.CountPostsByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, left)

	posts, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	for _, p := range posts {
		if p.ID == kept.ID {
			assert.Equal(t, "bob", p.AuthorID)
			continue
		}
		assert.Equal(t, "ghost", p.AuthorID)
		assert.Equal(t, "Name ghost", p.AuthorName)
	}
}
