package redaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notepid/lexcircle/internal/account"
)

func newReconciler(f *fixture, maxAttempts int) *Reconciler {
	return NewReconciler(f.svc, f.jobs, ReconcilerConfig{Workers: 3, MaxAttempts: maxAttempts}, f.metrics, nil)
}

func TestReconcilerDrainsQueuedJobs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.author(t, "alice", 3, 1)
	f.author(t, "carol", 1, 1)

	require.NoError(t, f.jobs.Enqueue(ctx, "alice"))
	require.NoError(t, f.jobs.Enqueue(ctx, "alice"), "enqueueing twice is a no-op")
	require.NoError(t, f.jobs.Enqueue(ctx, "carol"))

	pending, err := f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	summary, err := newReconciler(f, 3).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 4, summary.MessagesRewritten)
	assert.Equal(t, 2, summary.CommentsRewritten)

	pending, err = f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recent, err := f.jobs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, j := range recent {
		assert.Equal(t, JobCompleted, j.Status)
	}
}

func TestReconcilerFinishesStragglers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.author(t, "alice", 2, 0)

	_, err := f.svc.RedactAccount(ctx, "alice")
	require.NoError(t, err)

	// A send that raced the redaction lands after it finished.
	_, err = f.messages.Send(ctx, f.groupID, "alice", "late")
	require.NoError(t, err)

	ids, err := f.jobs.Stragglers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	summary, err := newReconciler(f, 3).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.MessagesRewritten)

	ids, err = f.jobs.Stragglers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	var attempted int64
	require.NoError(t, f.db.QueryRow(
		`SELECT redaction_attempted_at FROM accounts WHERE id = 'alice'`).Scan(&attempted))
	assert.NotZero(t, attempted)
}

func TestStragglersRotateByLastAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.author(t, "alice", 1, 0)
	f.author(t, "carol", 1, 0)
	_, err := f.db.Exec(`UPDATE accounts SET is_deleted = 1, can_login = 0 WHERE id IN ('alice', 'carol')`)
	require.NoError(t, err)

	sec := int64(100)
	f.jobs.now = func() time.Time {
		sec++
		return time.Unix(sec, 0)
	}

	ids, err := f.jobs.Stragglers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	// A failed attempt sends the account to the back of the line.
	require.NoError(t, f.jobs.MarkAttempted(ctx, "alice"))
	ids, err = f.jobs.Stragglers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, ids)

	require.NoError(t, f.jobs.MarkAttempted(ctx, "carol"))
	ids, err = f.jobs.Stragglers(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)
}

func TestStragglersIncludePostAuthors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.addAccount(t, "alice")
	_, err := f.posts.Create(ctx, "alice", "opinion")
	require.NoError(t, err)
	_, err = f.db.Exec(`UPDATE accounts SET is_deleted = 1, can_login = 0 WHERE id = 'alice'`)
	require.NoError(t, err)

	ids, err := f.jobs.Stragglers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	summary, err := newReconciler(f, 3).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PostsRewritten)

	ids, err = f.jobs.Stragglers(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecordFailureParksJobAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.addAccount(t, "alice")
	require.NoError(t, f.jobs.Enqueue(ctx, "alice"))

	pending, err := f.jobs.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID

	cause := errors.New("disk full")
	require.NoError(t, f.jobs.RecordFailure(ctx, id, cause, 2))
	pending, err = f.jobs.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "disk full", pending[0].LastError)

	require.NoError(t, f.jobs.RecordFailure(ctx, id, cause, 2))
	pending, err = f.jobs.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recent, err := f.jobs.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, JobFailed, recent[0].Status)

	// A new request can be queued once the previous one is no longer pending.
	require.NoError(t, f.jobs.Enqueue(ctx, "alice"))
	pending, err = f.jobs.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCompleteForAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.addAccount(t, "alice")
	require.NoError(t, f.jobs.Enqueue(ctx, "alice"))

	require.NoError(t, f.jobs.CompleteForAccount(ctx, "alice"))
	pending, err := f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunStopsWithContext(t *testing.T) {
	f := newFixture(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, newReconciler(f, 3).Run(ctx))
}

func TestRecordSettlesDirectRedactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.author(t, "alice", 1, 0)
	f.author(t, "carol", 1, 0)

	require.NoError(t, f.jobs.Enqueue(ctx, "alice"))
	report, err := f.svc.RedactAccount(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.jobs.Record(ctx, report, err))
	pending, err := f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "a complete redaction settles its job")

	// References left behind keep the job open.
	unfinished := &Report{AccountID: "carol", Remaining: 1}
	require.NoError(t, f.jobs.Record(ctx, unfinished, nil))
	pending, err = f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].AccountID)

	partial := &Report{AccountID: "carol"}
	require.NoError(t, f.jobs.Record(ctx, partial, &PartialError{Report: partial, Err: context.Canceled}))
	pending, err = f.jobs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "an interrupted run does not complete or duplicate the job")

	require.NoError(t, f.jobs.Record(ctx, nil, account.ErrNotFound))
}
