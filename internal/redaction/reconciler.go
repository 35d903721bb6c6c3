package redaction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// scanLimit bounds how many jobs and stragglers one pass picks up.
const scanLimit = 256

// ReconcilerConfig tunes the background reconciler.
type ReconcilerConfig struct {
	Interval    time.Duration
	Workers     int
	MaxAttempts int
}

// Summary describes one reconcile pass.
type Summary struct {
	Accounts          int
	Completed         int
	Failed            int
	MessagesRewritten int
	CommentsRewritten int
	PostsRewritten    int
}

// Reconciler drains queued redaction jobs and finishes redactions that were
// interrupted or raced by in-flight writes.
type Reconciler struct {
	svc     *Service
	jobs    *JobRepo
	cfg     ReconcilerConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(svc *Service, jobs *JobRepo, cfg ReconcilerConfig, metrics *Metrics, logger *zap.Logger) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{svc: svc, jobs: jobs, cfg: cfg, metrics: metrics, logger: logger.Named("reconciler")}
}

// RunOnce performs a single pass over pending jobs and stragglers.
func (r *Reconciler) RunOnce(ctx context.Context) (Summary, error) {
	pending, err := r.jobs.Pending(ctx, scanLimit)
	if err != nil {
		return Summary{}, err
	}
	r.metrics.setPending(len(pending))

	stragglers, err := r.jobs.Stragglers(ctx, scanLimit)
	if err != nil {
		return Summary{}, err
	}

	// One redaction per account; pending jobs for it are settled together.
	jobsByAccount := make(map[string][]int64)
	var order []string
	for _, j := range pending {
		if _, seen := jobsByAccount[j.AccountID]; !seen {
			order = append(order, j.AccountID)
		}
		jobsByAccount[j.AccountID] = append(jobsByAccount[j.AccountID], j.ID)
	}
	for _, id := range stragglers {
		if _, seen := jobsByAccount[id]; !seen {
			jobsByAccount[id] = nil
			order = append(order, id)
		}
	}

	var (
		mu      sync.Mutex
		summary = Summary{Accounts: len(order)}
	)
	p := pool.New().WithContext(ctx).WithMaxGoroutines(r.cfg.Workers)
	for _, accountID := range order {
		accountID := accountID
		jobIDs := jobsByAccount[accountID]
		p.Go(func(ctx context.Context) error {
			report, redactErr := r.svc.RedactAccount(ctx, accountID)
			if redactErr == nil && !report.Complete() {
				redactErr = errIncomplete
			}

			mu.Lock()
			if report != nil {
				summary.MessagesRewritten += report.MessagesRewritten
				summary.CommentsRewritten += report.CommentsRewritten
				summary.PostsRewritten += report.PostsRewritten
			}
			if redactErr == nil {
				summary.Completed++
			} else {
				summary.Failed++
			}
			mu.Unlock()

			return r.settle(ctx, accountID, jobIDs, redactErr)
		})
	}
	err = p.Wait()

	r.logger.Info("Reconcile pass finished",
		zap.Int("accounts", summary.Accounts),
		zap.Int("completed", summary.Completed),
		zap.Int("failed", summary.Failed),
		zap.Int("messages", summary.MessagesRewritten),
		zap.Int("comments", summary.CommentsRewritten),
		zap.Int("posts", summary.PostsRewritten))
	return summary, err
}

var errIncomplete = errors.New("references remain after redaction")

func (r *Reconciler) settle(ctx context.Context, accountID string, jobIDs []int64, redactErr error) error {
	if redactErr != nil {
		r.logger.Warn("Redaction attempt failed", zap.String("accountID", accountID), zap.Error(redactErr))
	}
	if err := r.jobs.MarkAttempted(ctx, accountID); err != nil {
		return err
	}
	for _, id := range jobIDs {
		var err error
		if redactErr == nil {
			err = r.jobs.Complete(ctx, id)
		} else {
			err = r.jobs.RecordFailure(ctx, id, redactErr, r.cfg.MaxAttempts)
		}
		if err != nil {
			return err
		}
	}
	// Straggler failures stay visible through the database and are retried
	// next pass; only bookkeeping errors fail the pass.
	return nil
}

// Run reconciles immediately and then on every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("Reconciler started", zap.Duration("interval", r.cfg.Interval), zap.Int("workers", r.cfg.Workers))
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Reconcile pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
