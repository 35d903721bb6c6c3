package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notepid/lexcircle/internal/db"
)

var (
	// ErrNotFound is returned when a post does not exist.
	ErrNotFound = errors.New("post not found")
	// ErrEmpty is returned for posts or comments without a body.
	ErrEmpty = errors.New("body is empty")
)

// Repo handles database operations for posts and their comments.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo creates a new post repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// Create publishes a new post.
func (r *Repo) Create(ctx context.Context, authorID, body string) (*Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmpty
	}
	p := &Post{ID: uuid.NewString(), AuthorID: authorID, Body: body, CreatedAt: r.now().UTC()}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, body, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Body, db.Nanos(p.CreatedAt)); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// Get returns a single post by ID.
func (r *Repo) Get(ctx context.Context, id string) (*Post, error) {
	p := &Post{}
	var created int64
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.author_id, COALESCE(a.display_name, 'Unknown'), p.body, p.created_at,
		       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
		FROM posts p
		LEFT JOIN accounts a ON a.id = p.author_id
		WHERE p.id = ?
	`, id).Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Body, &created, &p.CommentCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get post %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	p.CreatedAt = db.FromNanos(created)
	return p, nil
}

// List returns posts newest first, paginated.
func (r *Repo) List(ctx context.Context, offset, limit int) ([]*Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.author_id, COALESCE(a.display_name, 'Unknown'), p.body, p.created_at,
		       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
		FROM posts p
		LEFT JOIN accounts a ON a.id = p.author_id
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p := &Post{}
		var created int64
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Body, &created, &p.CommentCount); err != nil {
			return nil, err
		}
		p.CreatedAt = db.FromNanos(created)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// AddComment appends a comment to a post.
func (r *Repo) AddComment(ctx context.Context, postID, authorID, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmpty
	}
	c := &Comment{ID: uuid.NewString(), PostID: postID, AuthorID: authorID, Body: body, CreatedAt: r.now().UTC()}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, body, created_at)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM posts WHERE id = ?)
	`, c.ID, postID, authorID, body, db.Nanos(c.CreatedAt), postID)
	if err != nil {
		return nil, fmt.Errorf("comment on post %s: %w", postID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("comment on post %s: %w", postID, ErrNotFound)
	}
	return c, nil
}

// ListComments returns a post's comments oldest first.
func (r *Repo) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.author_id, COALESCE(a.display_name, 'Unknown'), c.body, c.created_at
		FROM comments c
		LEFT JOIN accounts a ON a.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.rowid ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", postID, err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		var created int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Body, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = db.FromNanos(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountCommentsByAuthor returns how many comments reference authorID.
func (r *Repo) CountCommentsByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE author_id = ?`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments by %s: %w", authorID, err)
	}
	return n, nil
}

// ReassignCommentAuthor rewrites at most limit comments from one author to
// another and returns how many rows changed.
func (r *Repo) ReassignCommentAuthor(ctx context.Context, from, to string, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE comments SET author_id = ?
		WHERE rowid IN (SELECT rowid FROM comments WHERE author_id = ? LIMIT ?)
	`, to, from, limit)
	if err != nil {
		return 0, fmt.Errorf("reassign comments of %s: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign comments of %s: %w", from, err)
	}
	return int(n), nil
}

// CountPostsByAuthor returns how many posts reference authorID.
func (r *Repo) CountPostsByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts by %s: %w", authorID, err)
	}
	return n, nil
}

// ReassignPostAuthor rewrites at most limit posts from one author to another
// and returns how many rows changed.
func (r *Repo) ReassignPostAuthor(ctx context.Context, from, to string, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE posts SET author_id = ?
		WHERE rowid IN (SELECT rowid FROM posts WHERE author_id = ? LIMIT ?)
	`, to, from, limit)
	if err != nil {
		return 0, fmt.Errorf("reassign posts of %s: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign posts of %s: %w", from, err)
	}
	return int(n), nil
}
