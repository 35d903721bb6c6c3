// Package redaction replaces a deleted account's authorship with the shared
// sentinel account.
package redaction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/db"
	"github.com/notepid/lexcircle/internal/message"
	"github.com/notepid/lexcircle/internal/post"
)

// DefaultBatchSize bounds how many rows a single rewrite statement touches.
const DefaultBatchSize = 500

// Report describes one redaction pass.
type Report struct {
	AccountID         string `json:"accountId"`
	SentinelID        string `json:"sentinelId"`
	MessagesRewritten int    `json:"messagesRewritten"`
	CommentsRewritten int    `json:"commentsRewritten"`
	PostsRewritten    int    `json:"postsRewritten"`
	// Remaining counts references still pointing at the account after the
	// pass, for example a message that was in flight while it ran.
	Remaining      int  `json:"remaining"`
	AlreadyDeleted bool `json:"alreadyDeleted"`
}

// Complete reports whether no authored content still references the account.
func (r *Report) Complete() bool { return r.Remaining == 0 }

// Service performs account deletions.
type Service struct {
	accounts  *account.Repo
	messages  *message.Repo
	posts     *post.Repo
	batchSize int
	metrics   *Metrics
	logger    *zap.Logger

	// afterBatch runs after every rewritten batch. Tests use it to interrupt a pass.
	afterBatch func(collection string, n int)
}

// NewService creates a redaction service. batchSize <= 0 uses DefaultBatchSize.
func NewService(accounts *account.Repo, messages *message.Repo, posts *post.Repo,
	batchSize int, metrics *Metrics, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		accounts:  accounts,
		messages:  messages,
		posts:     posts,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    logger.Named("redaction"),
	}
}

// RedactAccount deletes the account and rewrites every message, comment and
// post it authored to the sentinel account. It is idempotent; running it again after
// a partial pass finishes the job.
//
// The account is flagged deleted before any content is rewritten, so an
// interrupted pass leaves a deleted account with references that the
// reconciler finds and completes.
func (s *Service) RedactAccount(ctx context.Context, accountID string) (*Report, error) {
	acct, err := db.Operation(ctx, func(ctx context.Context) (*account.Account, error) {
		return s.accounts.GetByID(ctx, accountID)
	})
	if err != nil {
		s.metrics.observeRun("error")
		return nil, fmt.Errorf("redact account %s: %w", accountID, err)
	}
	if acct.IsSentinel {
		s.metrics.observeRun("error")
		return nil, fmt.Errorf("redact account %s: %w", accountID, ErrSentinel)
	}

	sentinel, err := db.Operation(ctx, s.accounts.EnsureSentinel)
	if err != nil {
		s.metrics.observeRun("error")
		return nil, fmt.Errorf("redact account %s: %w", accountID, err)
	}

	report := &Report{AccountID: accountID, SentinelID: sentinel.ID}
	log := s.logger.With(zap.String("accountID", accountID), zap.String("sentinelID", sentinel.ID))

	report.AlreadyDeleted, err = db.Operation(ctx, func(ctx context.Context) (bool, error) {
		return s.accounts.MarkDeleted(ctx, accountID)
	})
	if err != nil {
		return s.partial(report, err)
	}

	report.MessagesRewritten, err = s.rewrite(ctx, "messages", accountID, sentinel.ID, s.messages.ReassignAuthor)
	if err != nil {
		return s.partial(report, err)
	}
	report.CommentsRewritten, err = s.rewrite(ctx, "comments", accountID, sentinel.ID, s.posts.ReassignCommentAuthor)
	if err != nil {
		return s.partial(report, err)
	}
	report.PostsRewritten, err = s.rewrite(ctx, "posts", accountID, sentinel.ID, s.posts.ReassignPostAuthor)
	if err != nil {
		return s.partial(report, err)
	}

	report.Remaining, err = s.remaining(ctx, accountID)
	if err != nil {
		return s.partial(report, err)
	}

	s.metrics.observeReport(report)
	if report.Complete() {
		s.metrics.observeRun("completed")
	} else {
		s.metrics.observeRun("incomplete")
	}
	log.Info("Account redacted",
		zap.Int("messages", report.MessagesRewritten),
		zap.Int("comments", report.CommentsRewritten),
		zap.Int("posts", report.PostsRewritten),
		zap.Int("remaining", report.Remaining),
		zap.Bool("alreadyDeleted", report.AlreadyDeleted))
	return report, nil
}

type reassignFunc func(ctx context.Context, from, to string, limit int) (int, error)

// rewrite moves references in batches until a batch changes nothing. The
// count is returned even when a later batch fails.
func (s *Service) rewrite(ctx context.Context, collection, from, to string, reassign reassignFunc) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := db.Operation(ctx, func(ctx context.Context) (int, error) {
			return reassign(ctx, from, to, s.batchSize)
		})
		if err != nil {
			return total, fmt.Errorf("rewrite %s: %w", collection, err)
		}
		if n == 0 {
			return total, nil
		}
		total += n
		if s.afterBatch != nil {
			s.afterBatch(collection, n)
		}
	}
}

func (s *Service) remaining(ctx context.Context, accountID string) (int, error) {
	msgs, err := s.messages.CountByAuthor(ctx, accountID)
	if err != nil {
		return 0, err
	}
	comments, err := s.posts.CountCommentsByAuthor(ctx, accountID)
	if err != nil {
		return 0, err
	}
	posts, err := s.posts.CountPostsByAuthor(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return msgs + comments + posts, nil
}

func (s *Service) partial(report *Report, err error) (*Report, error) {
	s.metrics.observeReport(report)
	s.metrics.observeRun("partial")
	level := zap.WarnLevel
	if errors.Is(err, context.Canceled) {
		level = zap.InfoLevel
	}
	s.logger.Check(level, "Account redaction interrupted").Write(
		zap.String("accountID", report.AccountID),
		zap.Int("messages", report.MessagesRewritten),
		zap.Int("comments", report.CommentsRewritten),
		zap.Int("posts", report.PostsRewritten),
		zap.Error(err))
	return report, &PartialError{Report: report, Err: err}
}
