package group

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
	// ErrNotFound is returned when the group does not exist.
	ErrNotFound = errors.New("group not found")
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid group input")
)

// Repo is the membership store: groups, members and visibility ledgers.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo creates a new group repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

// Create inserts a group with empty ledgers and the given initial members.
func (r *Repo) Create(ctx context.Context, name string, memberIDs ...string) (*Group, error) {
	if name = strings.TrimSpace(name); name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}

	g := New(uuid.NewString(), name, r.now().UTC())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_groups (id, name, created_at) VALUES (?, ?, ?)`,
		g.ID, g.Name, db.Nanos(g.CreatedAt)); err != nil {
		return nil, fmt.Errorf("create group %s: %w", name, err)
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)
			ON CONFLICT(group_id, user_id) DO NOTHING
		`, g.ID, uid, db.Nanos(g.CreatedAt)); err != nil {
			return nil, fmt.Errorf("add member %s to group %s: %w", uid, g.ID, err)
		}
		g.Members[uid] = struct{}{}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create group %s: %w", name, err)
	}
	return g, nil
}

// Get loads a group with its members and both ledgers.
func (r *Repo) Get(ctx context.Context, id string) (*Group, error) {
	var name string
	var created int64
	err := r.db.QueryRowContext(ctx,
		`SELECT name, created_at FROM chat_groups WHERE id = ?`, id).Scan(&name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get group %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", id, err)
	}

	g := New(id, name, db.FromNanos(created))

	members, err := r.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, uid := range members {
		g.Members[uid] = struct{}{}
	}

	entries, err := r.Ledger(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		g.ledger(e.Kind)[e.UserID] = e.At
	}

	return g, nil
}

// Exists reports whether a group exists.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_groups WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check group %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns every group, newest first. Intended for admin views.
func (r *Repo) List(ctx context.Context) ([]*Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name,
		       (SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id)
		FROM chat_groups g
		ORDER BY g.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		s := &Summary{}
		if err := rows.Scan(&s.ID, &s.Name, &s.MemberCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListForUser returns the groups userID belongs to with that user's ledger state.
func (r *Repo) ListForUser(ctx context.Context, userID string) ([]*Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.name,
		       (SELECT COUNT(*) FROM group_members x WHERE x.group_id = g.id),
		       h.at, p.at
		FROM group_members m
		JOIN chat_groups g ON g.id = m.group_id
		LEFT JOIN group_ledger h ON h.group_id = g.id AND h.user_id = m.user_id AND h.kind = 'hidden'
		LEFT JOIN group_ledger p ON p.group_id = g.id AND p.user_id = m.user_id AND p.kind = 'purged'
		WHERE m.user_id = ?
		ORDER BY g.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		s := &Summary{}
		var hidden, purged sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Name, &s.MemberCount, &hidden, &purged); err != nil {
			return nil, err
		}
		if hidden.Valid {
			t := db.FromNanos(hidden.Int64)
			s.Hidden = true
			s.HiddenAt = &t
		}
		if purged.Valid {
			t := db.FromNanos(purged.Int64)
			s.PurgedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Members returns the user IDs currently in a group.
func (r *Repo) Members(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at, user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", groupID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsMember reports whether userID currently belongs to groupID.
func (r *Repo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID).Scan(&n); err != nil {
		return false, fmt.Errorf("check membership %s/%s: %w", groupID, userID, err)
	}
	return n > 0, nil
}

// AddMember adds userID to a group. Adding an existing member is a no-op.
func (r *Repo) AddMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, joined_at)
		SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM chat_groups WHERE id = ?)
		ON CONFLICT(group_id, user_id) DO NOTHING
	`, groupID, userID, db.Nanos(r.now()), groupID)
	if err != nil {
		return fmt.Errorf("add member %s to group %s: %w", userID, groupID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.requireExists(ctx, groupID)
	}
	return nil
}

// RemoveMember removes userID from a group. Ledger entries are left in place.
func (r *Repo) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member %s from group %s: %w", userID, groupID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return r.requireExists(ctx, groupID)
	}
	return nil
}

// Ledger returns every ledger entry of a group.
func (r *Repo) Ledger(ctx context.Context, groupID string) ([]LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, kind, at FROM group_ledger WHERE group_id = ? ORDER BY user_id, kind`, groupID)
	if err != nil {
		return nil, fmt.Errorf("load ledger of %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var kind string
		var at int64
		if err := rows.Scan(&e.UserID, &kind, &at); err != nil {
			return nil, err
		}
		e.Kind = LedgerKind(kind)
		e.At = db.FromNanos(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetLedgerEntry upserts the (userID, kind) entry to at as one atomic statement.
// An existing entry never moves backwards.
func (r *Repo) SetLedgerEntry(ctx context.Context, groupID, userID string, kind LedgerKind, at time.Time) error {
	if err := validKind(kind); err != nil {
		return err
	}

	err := db.Exec(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO group_ledger (group_id, user_id, kind, at)
			SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM chat_groups WHERE id = ?)
			ON CONFLICT(group_id, user_id, kind) DO UPDATE SET at = MAX(at, excluded.at)
		`, groupID, userID, string(kind), db.Nanos(at), groupID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("set %s for %s: %w", kind, groupID, ErrNotFound)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("set %s ledger entry %s/%s: %w", kind, groupID, userID, err)
	}
	return err
}

// ClearLedgerEntry deletes the (userID, kind) entry. Reports whether an entry
// existed; clearing an absent entry is not an error.
func (r *Repo) ClearLedgerEntry(ctx context.Context, groupID, userID string, kind LedgerKind) (bool, error) {
	if err := validKind(kind); err != nil {
		return false, err
	}

	removed, err := db.Operation(ctx, func(ctx context.Context) (bool, error) {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM group_ledger WHERE group_id = ? AND user_id = ? AND kind = ?`,
			groupID, userID, string(kind))
		if err != nil {
			return false, err
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("clear %s ledger entry %s/%s: %w", kind, groupID, userID, err)
	}
	if !removed {
		return false, r.requireExists(ctx, groupID)
	}
	return true, nil
}

func (r *Repo) requireExists(ctx context.Context, groupID string) error {
	ok, err := r.Exists(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	return nil
}

func validKind(kind LedgerKind) error {
	switch kind {
	case LedgerHidden, LedgerPurged:
		return nil
	}
	return fmt.Errorf("%w: unknown ledger kind %q", ErrInvalid, kind)
}
