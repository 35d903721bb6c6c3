package conversation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/group"
	"github.com/notepid/lexcircle/internal/message"
)

// Result is the outcome of a ledger operation. Changed is false when the
// operation found the ledger already in the requested state.
type Result struct {
	Changed bool
	At      time.Time
}

// Controller owns the per-member visibility ledgers of groups and serves the
// visibility-filtered message read path.
type Controller struct {
	groups   *group.Repo
	messages *message.Repo
	now      func() time.Time
	logger   *zap.Logger
}

// NewController creates a conversation state controller.
func NewController(groups *group.Repo, messages *message.Repo, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		groups:   groups,
		messages: messages,
		now:      time.Now,
		logger:   logger.Named("conversation"),
	}
}

// WithClock replaces the time source used to stamp ledger entries.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Hide hides the conversation for userID as of now. Hiding again advances the
// instant and tightens the cutoff.
func (c *Controller) Hide(ctx context.Context, groupID, userID string) (Result, error) {
	at := c.now().UTC()
	if err := c.groups.SetLedgerEntry(ctx, groupID, userID, group.LedgerHidden, at); err != nil {
		return Result{}, err
	}
	c.logger.Debug("Conversation hidden",
		zap.String("groupID", groupID), zap.String("userID", userID), zap.Time("at", at))
	return Result{Changed: true, At: at}, nil
}

// Unhide removes userID's hide entry. Unhiding a visible conversation is a no-op.
func (c *Controller) Unhide(ctx context.Context, groupID, userID string) (Result, error) {
	removed, err := c.groups.ClearLedgerEntry(ctx, groupID, userID, group.LedgerHidden)
	if err != nil {
		return Result{}, err
	}
	if removed {
		c.logger.Debug("Conversation unhidden",
			zap.String("groupID", groupID), zap.String("userID", userID))
	}
	return Result{Changed: removed}, nil
}

// PurgeHistory removes everything before now from userID's view of the group.
// There is no user-facing way to undo it.
func (c *Controller) PurgeHistory(ctx context.Context, groupID, userID string) (Result, error) {
	at := c.now().UTC()
	if err := c.groups.SetLedgerEntry(ctx, groupID, userID, group.LedgerPurged, at); err != nil {
		return Result{}, err
	}
	c.logger.Info("Conversation history purged",
		zap.String("groupID", groupID), zap.String("userID", userID), zap.Time("at", at))
	return Result{Changed: true, At: at}, nil
}

// Cutoff loads the group and resolves userID's cutoff.
func (c *Controller) Cutoff(ctx context.Context, groupID, userID string) (time.Time, bool, error) {
	g, err := c.groups.Get(ctx, groupID)
	if err != nil {
		return time.Time{}, false, err
	}
	cutoff, ok := ResolveCutoff(g, userID)
	return cutoff, ok, nil
}

// Page selects a window of the visible history. The zero value returns all of it.
type Page struct {
	// Before, when set, keeps only messages created strictly before it.
	Before *time.Time
	// Limit keeps only the newest Limit messages of the window.
	Limit int
}

// VisibleMessages returns the messages userID can currently see in the group,
// oldest first.
func (c *Controller) VisibleMessages(ctx context.Context, groupID, userID string, page Page) ([]*message.Message, error) {
	cutoff, ok, err := c.Cutoff(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	q := message.Query{Before: page.Before, Limit: page.Limit}
	if ok {
		q.After = &cutoff
	}
	return c.messages.List(ctx, groupID, q)
}

// VisibleMessage returns one message of the group if userID can see it.
// Messages behind the cutoff, or from another group, are reported as not found.
func (c *Controller) VisibleMessage(ctx context.Context, groupID, userID, messageID string) (*message.Message, error) {
	cutoff, ok, err := c.Cutoff(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	m, err := c.messages.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.GroupID != groupID || !Visible(m.CreatedAt, cutoff, ok) {
		return nil, fmt.Errorf("get message %s: %w", messageID, message.ErrNotFound)
	}
	return m, nil
}
