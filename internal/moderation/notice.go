package moderation

import (
	"context"
	"time"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
)

// backgroundTimeout bounds the platform calls made by scheduled tasks.
const backgroundTimeout = 30 * time.Second

// NoticeRequest describes a moderation action to announce in a group.
type NoticeRequest struct {
	GroupID     int64
	UserID      int64
	DisplayName string
	Record      models.ViolationRecord
	Action      Action
}

// Notifier posts group notices and retracts them when the restriction they
// announce expires. A user has at most one notice awaiting retraction; a newer
// one retracts the older immediately.
type Notifier struct {
	gateway Gateway
	store   NoticeStore
	clock   Clock
	format  *Formatter
	tasks   *TaskRegistry[int64]
}

func NewNotifier(gateway Gateway, store NoticeStore, clock Clock, scheduler Scheduler, format *Formatter) *Notifier {
	return &Notifier{
		gateway: gateway,
		store:   store,
		clock:   clock,
		format:  format,
		tasks:   NewTaskRegistry[int64]("notice-retraction", scheduler),
	}
}

// PostViolationNotice sends the notice and, for a finite action, schedules its
// retraction. It returns the notice message id.
func (n *Notifier) PostViolationNotice(ctx context.Context, req NoticeRequest) (int, error) {
	now := n.clock.Now()
	text := n.format.Text("group_notice",
		req.UserID,
		req.DisplayName,
		req.Record.DailyCount,
		req.Record.TotalCount,
		n.format.ActionDuration(req.Action),
		n.format.Until(now, req.Action),
	)

	messageID, err := n.gateway.SendMessage(ctx, OutgoingMessage{ChatID: req.GroupID, Text: text, HTML: true})
	if err != nil {
		return 0, err
	}

	if req.Action.Permanent() || req.Action.Duration <= 0 {
		return messageID, nil
	}

	n.supersede(ctx, req.UserID)

	notice := models.PendingNotice{
		UserID:           req.UserID,
		GroupID:          req.GroupID,
		MessageID:        messageID,
		RestrictDuration: req.Action.Duration,
		Token:            NewToken(),
		CreatedAt:        now,
	}
	if err := n.store.PutNotice(ctx, notice); err != nil {
		// the retraction still runs, it just won't survive a restart
		logger.Errorf("Failed to persist notice %d for user %d: %v", messageID, req.UserID, err)
		pipelineErrors.WithLabelValues(errorStorage).Inc()
	}

	n.schedule(notice, req.Action.Duration)
	return messageID, nil
}

// supersede retracts the live notice of a user, if any.
func (n *Notifier) supersede(ctx context.Context, userID int64) {
	n.tasks.Cancel(userID)

	prev, ok, err := n.store.GetNotice(ctx, userID)
	if err != nil {
		logger.Warningf("Failed to load previous notice of user %d: %v", userID, err)
		return
	}
	if !ok {
		return
	}
	if _, err := n.store.DeleteNotice(ctx, userID, prev.Token); err != nil {
		logger.Warningf("Failed to drop previous notice of user %d: %v", userID, err)
	}
	n.deleteNotice(ctx, prev)
}

func (n *Notifier) schedule(notice models.PendingNotice, after time.Duration) {
	n.tasks.Schedule(notice.UserID, notice.Token, after, func() {
		n.retract(notice)
	})
	pendingTasks.WithLabelValues("notice").Set(float64(n.tasks.Len()))
}

// retract deletes the notice message and its bookkeeping. A stale task still
// deletes its own message, which is then usually already gone.
func (n *Notifier) retract(notice models.PendingNotice) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	n.tasks.Finish(notice.UserID, notice.Token)
	pendingTasks.WithLabelValues("notice").Set(float64(n.tasks.Len()))

	if _, err := n.store.DeleteNotice(ctx, notice.UserID, notice.Token); err != nil {
		logger.Warningf("Failed to drop notice bookkeeping of user %d: %v", notice.UserID, err)
	}
	if n.deleteNotice(ctx, notice) {
		noticesRetracted.Inc()
	}
}

// deleteNotice removes the message. A message that is already gone counts as
// retracted.
func (n *Notifier) deleteNotice(ctx context.Context, notice models.PendingNotice) bool {
	err := n.gateway.DeleteMessage(ctx, notice.GroupID, notice.MessageID)
	if err == nil || IsMessageNotFound(err) {
		return true
	}
	pipelineErrors.WithLabelValues(errorGateway).Inc()
	logger.DeleteFailure(notice.GroupID, notice.MessageID, notice.UserID, err.Error())
	return false
}

// Restore re-arms the retractions persisted by a previous run. Overdue notices
// are retracted immediately.
func (n *Notifier) Restore(ctx context.Context) (int, error) {
	notices, err := n.store.ListNotices(ctx)
	if err != nil {
		return 0, err
	}

	now := n.clock.Now()
	for _, notice := range notices {
		remaining := notice.RetractAt().Sub(now)
		if remaining <= 0 {
			n.retract(notice)
			continue
		}
		n.schedule(notice, remaining)
	}
	return len(notices), nil
}

// Pending returns the number of scheduled retractions.
func (n *Notifier) Pending() int {
	return n.tasks.Len()
}

// Stop cancels the in-memory timers. Persisted notices are kept for Restore.
func (n *Notifier) Stop() {
	n.tasks.StopAll()
}
