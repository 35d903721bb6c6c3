package redaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/notepid/lexcircle/internal/db"
)

// JobStatus is the lifecycle state of a redaction job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a queued request to redact one account.
type Job struct {
	ID          int64
	AccountID   string
	Status      JobStatus
	Attempts    int
	LastError   string
	RequestedAt time.Time
	UpdatedAt   time.Time
}

// JobRepo persists redaction jobs and finds accounts whose redaction never
// finished.
type JobRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewJobRepo creates a new job repository.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db, now: time.Now}
}

// Enqueue records a pending job for accountID. At most one pending job exists
// per account; enqueueing again is a no-op.
func (r *JobRepo) Enqueue(ctx context.Context, accountID string) error {
	now := db.Nanos(r.now())
	return db.Exec(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO redaction_jobs (account_id, status, requested_at, updated_at)
			VALUES (?, 'pending', ?, ?)
			ON CONFLICT DO NOTHING
		`, accountID, now, now)
		if err != nil {
			return fmt.Errorf("enqueue redaction of %s: %w", accountID, err)
		}
		return nil
	})
}

// Pending returns pending jobs oldest first.
func (r *JobRepo) Pending(ctx context.Context, limit int) ([]*Job, error) {
	return r.query(ctx, `
		SELECT id, account_id, status, attempts, last_error, requested_at, updated_at
		FROM redaction_jobs WHERE status = 'pending'
		ORDER BY requested_at ASC, id ASC LIMIT ?
	`, limit)
}

// Recent returns the most recently updated jobs in any state.
func (r *JobRepo) Recent(ctx context.Context, limit int) ([]*Job, error) {
	return r.query(ctx, `
		SELECT id, account_id, status, attempts, last_error, requested_at, updated_at
		FROM redaction_jobs
		ORDER BY updated_at DESC, id DESC LIMIT ?
	`, limit)
}

func (r *JobRepo) query(ctx context.Context, q string, args ...any) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list redaction jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var status string
		var requested, updated int64
		if err := rows.Scan(&j.ID, &j.AccountID, &status, &j.Attempts, &j.LastError, &requested, &updated); err != nil {
			return nil, err
		}
		j.Status = JobStatus(status)
		j.RequestedAt = db.FromNanos(requested)
		j.UpdatedAt = db.FromNanos(updated)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Complete marks a job completed.
func (r *JobRepo) Complete(ctx context.Context, id int64) error {
	return db.Exec(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE redaction_jobs SET status = 'completed', attempts = attempts + 1, last_error = '', updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, db.Nanos(r.now()), id)
		if err != nil {
			return fmt.Errorf("complete redaction job %d: %w", id, err)
		}
		return nil
	})
}

// CompleteForAccount marks any pending job for accountID completed. It covers
// accounts redacted directly instead of through the queue.
func (r *JobRepo) CompleteForAccount(ctx context.Context, accountID string) error {
	return db.Exec(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE redaction_jobs SET status = 'completed', last_error = '', updated_at = ?
			WHERE account_id = ? AND status = 'pending'
		`, db.Nanos(r.now()), accountID)
		if err != nil {
			return fmt.Errorf("complete redaction of %s: %w", accountID, err)
		}
		return nil
	})
}

// Record updates the queue after a redaction run outside the reconciler. A
// finished account has its pending job completed; an unfinished one is queued
// so the reconciler completes it.
func (r *JobRepo) Record(ctx context.Context, report *Report, redactErr error) error {
	switch {
	case report == nil:
		return nil
	case redactErr != nil || !report.Complete():
		return r.Enqueue(ctx, report.AccountID)
	default:
		return r.CompleteForAccount(ctx, report.AccountID)
	}
}

// MarkAttempted stamps the account with the time of its latest redaction
// attempt.
func (r *JobRepo) MarkAttempted(ctx context.Context, accountID string) error {
	return db.Exec(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx,
			`UPDATE accounts SET redaction_attempted_at = ? WHERE id = ?`,
			db.Nanos(r.now()), accountID)
		if err != nil {
			return fmt.Errorf("mark redaction attempt of %s: %w", accountID, err)
		}
		return nil
	})
}

// RecordFailure counts a failed attempt. Once maxAttempts is reached the job
// is parked as failed. maxAttempts <= 0 retries forever.
func (r *JobRepo) RecordFailure(ctx context.Context, id int64, cause error, maxAttempts int) error {
	return db.Exec(ctx, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
			UPDATE redaction_jobs
			SET attempts = attempts + 1,
			    last_error = ?,
			    status = CASE WHEN ? > 0 AND attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
			    updated_at = ?
			WHERE id = ? AND status = 'pending'
		`, cause.Error(), maxAttempts, maxAttempts, db.Nanos(r.now()), id)
		if err != nil {
			return fmt.Errorf("record redaction failure %d: %w", id, err)
		}
		return nil
	})
}

// Stragglers returns deleted, non-sentinel accounts that are still referenced
// by messages, comments or posts. Accounts attempted least recently come
// first, so a batch that keeps failing cannot starve the rest.
func (r *JobRepo) Stragglers(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id FROM accounts a
		WHERE a.is_deleted = 1 AND a.is_sentinel = 0
		  AND (EXISTS (SELECT 1 FROM messages m WHERE m.author_id = a.id)
		    OR EXISTS (SELECT 1 FROM comments c WHERE c.author_id = a.id)
		    OR EXISTS (SELECT 1 FROM posts p WHERE p.author_id = a.id))
		ORDER BY a.redaction_attempted_at ASC, a.updated_at ASC, a.id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("find unfinished redactions: %w", err)
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
