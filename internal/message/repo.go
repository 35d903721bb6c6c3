package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notepid/lexcircle/internal/db"
)

var (
	// ErrNotFound is returned when a message or its group does not exist.
	ErrNotFound = errors.New("message not found")
	// ErrEmpty is returned when sending a message without content.
	ErrEmpty = errors.New("message content is empty")
)

// Repo is the message store. Messages are append-only; only the author
// reference can change after creation, and only through ReassignAuthor.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo creates a new message repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// Send posts a new message to a group, stamped with the current time.
func (r *Repo) Send(ctx context.Context, groupID, authorID, content string) (*Message, error) {
	return r.SendAt(ctx, groupID, authorID, content, r.now())
}

// SendAt posts a message with an explicit creation instant, as used by imports.
func (r *Repo) SendAt(ctx context.Context, groupID, authorID, content string, at time.Time) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmpty
	}

	m := &Message{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: at.UTC(),
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, group_id, author_id, content, created_at)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM chat_groups WHERE id = ?)
	`, m.ID, groupID, authorID, content, db.Nanos(m.CreatedAt), groupID)
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", groupID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("send message to group %s: %w", groupID, ErrNotFound)
	}

	return m, nil
}

// Get returns a single message by ID.
func (r *Repo) Get(ctx context.Context, id string) (*Message, error) {
	m := &Message{}
	var created int64
	err := r.db.QueryRowContext(ctx, `
		SELECT m.id, m.group_id, m.author_id, COALESCE(a.display_name, 'Unknown'), m.content, m.created_at
		FROM messages m
		LEFT JOIN accounts a ON a.id = m.author_id
		WHERE m.id = ?
	`, id).Scan(&m.ID, &m.GroupID, &m.AuthorID, &m.AuthorName, &m.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	m.CreatedAt = db.FromNanos(created)
	return m, nil
}

// List returns a group's messages ordered by creation time ascending. With a
// limit, the newest page is returned, still oldest first.
func (r *Repo) List(ctx context.Context, groupID string, q Query) ([]*Message, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT m.id, m.group_id, m.author_id, COALESCE(a.display_name, 'Unknown'), m.content, m.created_at
		FROM messages m
		LEFT JOIN accounts a ON a.id = m.author_id
		WHERE m.group_id = ?`)
	args := []any{groupID}

	if q.After != nil {
		sb.WriteString(` AND m.created_at > ?`)
		args = append(args, db.Nanos(*q.After))
	}
	if q.Before != nil {
		sb.WriteString(` AND m.created_at < ?`)
		args = append(args, db.Nanos(*q.Before))
	}
	if q.Limit > 0 {
		sb.WriteString(` ORDER BY m.created_at DESC, m.rowid DESC LIMIT ?`)
		args = append(args, q.Limit)
	} else {
		sb.WriteString(` ORDER BY m.created_at ASC, m.rowid ASC`)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", groupID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		var created int64
		if err := rows.Scan(&m.ID, &m.GroupID, &m.AuthorID, &m.AuthorName, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = db.FromNanos(created)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if q.Limit > 0 {
		slices.Reverse(messages)
	}
	return messages, nil
}

// CountByAuthor returns how many messages reference authorID.
func (r *Repo) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE author_id = ?`, authorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages by %s: %w", authorID, err)
	}
	return n, nil
}

// ReassignAuthor rewrites at most limit messages from one author to another
// and returns how many rows changed. Callers loop until it returns zero.
func (r *Repo) ReassignAuthor(ctx context.Context, from, to string, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET author_id = ?
		WHERE rowid IN (SELECT rowid FROM messages WHERE author_id = ? LIMIT ?)
	`, to, from, limit)
	if err != nil {
		return 0, fmt.Errorf("reassign messages of %s: %w", from, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign messages of %s: %w", from, err)
	}
	return int(n), nil
}
