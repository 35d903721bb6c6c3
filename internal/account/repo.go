package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notepid/lexcircle/internal/db"
)

var (
	// ErrNotFound is returned when no (addressable) account matches.
	ErrNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned by Create for duplicate usernames.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid account input")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,32}$`)

const accountColumns = `id, username, display_name, password_hash, role, is_deleted, can_login,
	hide_from_suggestions, is_sentinel, created_at, updated_at`

// Repo handles database operations for accounts.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepo creates a new account repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	a := &Account{}
	var role string
	var created, updated int64
	if err := row.Scan(&a.ID, &a.Username, &a.DisplayName, &a.PasswordHash, &role,
		&a.IsDeleted, &a.CanLogin, &a.HideFromSuggestions, &a.IsSentinel,
		&created, &updated); err != nil {
		return nil, err
	}
	a.Roles = ParseRoles(role)
	a.CreatedAt = db.FromNanos(created)
	a.UpdatedAt = db.FromNanos(updated)
	return a, nil
}

// Create inserts a new account with a hashed password.
func (r *Repo) Create(ctx context.Context, username, password, displayName string, roles ...Role) (*Account, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-32 letters, digits, '_' or '.'", ErrInvalid)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalid)
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = username
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := db.Nanos(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, display_name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, username, displayName, hash, NormalizeRoles(roles...), now, now)
	if err != nil {
		return nil, fmt.Errorf("create account %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("create account %s: %w", username, ErrUsernameTaken)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves an account by ID, including deleted and sentinel accounts.
func (r *Repo) GetByID(ctx context.Context, id string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *Repo) GetByUsername(ctx context.Context, username string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ? COLLATE NOCASE`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", username, err)
	}
	return a, nil
}

// GetProfile returns an account only if it is a normal, addressable profile.
// Deleted accounts and the sentinel are reported as not found.
func (r *Repo) GetProfile(ctx context.Context, id string) (*Account, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Addressable() {
		return nil, fmt.Errorf("get profile %s: %w", id, ErrNotFound)
	}
	return a, nil
}

// List returns all accounts ordered by username, including deleted ones.
func (r *Repo) List(ctx context.Context) ([]*Account, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
}

// Suggestions returns addressable accounts that have not opted out of suggestions.
func (r *Repo) Suggestions(ctx context.Context, excludeID string, limit int) ([]*Account, error) {
	return r.query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE is_deleted = 0 AND is_sentinel = 0 AND hide_from_suggestions = 0 AND id != ?
		ORDER BY created_at DESC
		LIMIT ?
	`, excludeID, limit)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]*Account, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpdateProfile updates an addressable account's display name.
func (r *Repo) UpdateProfile(ctx context.Context, id, displayName string) error {
	return r.update(ctx, id, `
		UPDATE accounts SET display_name = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND is_sentinel = 0
	`, strings.TrimSpace(displayName), db.Nanos(r.now()), id)
}

// SetRoles replaces an account's roles. The stored string is always canonical;
// unknown tags are rejected rather than silently dropped.
func (r *Repo) SetRoles(ctx context.Context, id string, roles ...Role) error {
	for _, role := range roles {
		if !IsKnownRole(string(role)) {
			return fmt.Errorf("%w: unknown role %q", ErrInvalid, role)
		}
	}
	return r.update(ctx, id, `
		UPDATE accounts SET role = ?, updated_at = ? WHERE id = ?
	`, NormalizeRoles(roles...), db.Nanos(r.now()), id)
}

// UpdatePassword changes a live account's password.
func (r *Repo) UpdatePassword(ctx context.Context, id, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrInvalid)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return r.update(ctx, id, `
		UPDATE accounts SET password_hash = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND is_sentinel = 0
	`, hash, db.Nanos(r.now()), id)
}

// SetHideFromSuggestions toggles whether the account appears in suggestions.
func (r *Repo) SetHideFromSuggestions(ctx context.Context, id string, hide bool) error {
	return r.update(ctx, id, `
		UPDATE accounts SET hide_from_suggestions = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`, hide, db.Nanos(r.now()), id)
}

func (r *Repo) update(ctx context.Context, id, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update account %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update account %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkDeleted soft-deletes an account: it can no longer log in and is hidden
// from suggestions. Reports whether the account was already deleted.
func (r *Repo) MarkDeleted(ctx context.Context, id string) (alreadyDeleted bool, err error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE accounts
		SET is_deleted = 1, can_login = 0, hide_from_suggestions = 1, updated_at = ?
		WHERE id = ? AND (is_deleted = 0 OR can_login = 1 OR hide_from_suggestions = 0)
	`, db.Nanos(r.now()), id)
	if err != nil {
		return false, fmt.Errorf("mark account %s deleted: %w", id, err)
	}
	return a.IsDeleted, nil
}

// EnsureSentinel returns the sentinel redacted account, creating it on first use.
// Concurrent callers converge on the same row via the partial unique index.
func (r *Repo) EnsureSentinel(ctx context.Context) (*Account, error) {
	if a, err := r.Sentinel(ctx); err == nil {
		return a, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := db.Nanos(r.now())
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, display_name, password_hash, role,
			is_deleted, can_login, hide_from_suggestions, is_sentinel, created_at, updated_at)
		VALUES (?, ?, ?, '', ?, 1, 0, 1, 1, ?, ?)
		ON CONFLICT DO NOTHING
	`, uuid.NewString(), SentinelUsername, SentinelDisplayName, NormalizeRoles(), now, now); err != nil {
		return nil, fmt.Errorf("create sentinel account: %w", err)
	}

	return r.Sentinel(ctx)
}

// Sentinel returns the existing sentinel account, or ErrNotFound.
func (r *Repo) Sentinel(ctx context.Context) (*Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_sentinel = 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get sentinel account: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sentinel account: %w", err)
	}
	return a, nil
}

// RepairRoles rewrites every stored role string into canonical form and
// returns how many rows changed.
func (r *Repo) RepairRoles(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, role FROM accounts`)
	if err != nil {
		return 0, fmt.Errorf("scan roles: %w", err)
	}

	fixes := make(map[string]string)
	for rows.Next() {
		var id, role string
		if err := rows.Scan(&id, &role); err != nil {
			rows.Close()
			return 0, err
		}
		if canonical := ParseRoles(role).String(); canonical != role {
			fixes[id] = canonical
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for id, role := range fixes {
		if _, err := r.db.ExecContext(ctx, `UPDATE accounts SET role = ? WHERE id = ?`, role, id); err != nil {
			return 0, fmt.Errorf("repair roles for %s: %w", id, err)
		}
	}
	return len(fixes), nil
}
