package moderation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
)

// CallbackPrefix starts the callback data of challenge buttons.
const CallbackPrefix = "captcha_"

// CallbackData returns the button payload for the challenge of userID.
func CallbackData(userID int64) string {
	return CallbackPrefix + strconv.FormatInt(userID, 10)
}

// ParseCallbackData extracts the challenged user from a button payload.
func ParseCallbackData(data string) (int64, bool) {
	if !strings.HasPrefix(data, CallbackPrefix) {
		return 0, false
	}
	userID, err := strconv.ParseInt(strings.TrimPrefix(data, CallbackPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// Coordinator runs the human-verification challenge of new members. For each
// (user, group) a challenge is pending until it is verified, expires or is
// cancelled. Verify and expiry both start by deleting the stored record, so
// exactly one of them acts on an issuance.
type Coordinator struct {
	gateway Gateway
	store   ChallengeStore
	clock   Clock
	window  time.Duration
	format  *Formatter
	tasks   *TaskRegistry[memberKey]
}

func NewCoordinator(gateway Gateway, store ChallengeStore, clock Clock, scheduler Scheduler, window time.Duration, format *Formatter) *Coordinator {
	return &Coordinator{
		gateway: gateway,
		store:   store,
		clock:   clock,
		window:  window,
		format:  format,
		tasks:   NewTaskRegistry[memberKey]("challenge-timeout", scheduler),
	}
}

// Issue posts the challenge prompt, stores the record and arms the timeout.
// Issuing again while pending replaces the prompt and restarts the timer.
func (c *Coordinator) Issue(ctx context.Context, userID, groupID int64, displayName string) error {
	key := memberKey{UserID: userID, GroupID: groupID}
	window := c.format.Duration(c.window)

	messageID, err := c.gateway.SendMessage(ctx, OutgoingMessage{
		ChatID: groupID,
		Text:   c.format.Text("captcha_prompt", userID, displayName, window, window),
		HTML:   true,
		Button: &Button{Text: c.format.Text("captcha_button"), CallbackData: CallbackData(userID)},
	})
	if err != nil {
		return fmt.Errorf("send challenge prompt: %w", err)
	}

	prev, hadPrev, err := c.store.GetChallenge(ctx, userID, groupID)
	if err != nil {
		logger.Warningf("Failed to load previous challenge of user %d in group %d: %v", userID, groupID, err)
	}

	record := models.ChallengeRecord{
		UserID:    userID,
		GroupID:   groupID,
		MessageID: messageID,
		Token:     NewToken(),
		IssuedAt:  c.clock.Now(),
	}
	if err := c.store.PutChallenge(ctx, record); err != nil {
		c.deletePrompt(ctx, groupID, messageID, userID)
		return err
	}

	if hadPrev && prev.MessageID != messageID {
		c.deletePrompt(ctx, groupID, prev.MessageID, userID)
	}

	c.arm(key, record, c.window)
	challengeOutcomes.WithLabelValues(outcomeIssued).Inc()
	logger.Infof("Challenge issued to user %d in group %d, expires in %s", userID, groupID, c.window)
	return nil
}

func (c *Coordinator) arm(key memberKey, record models.ChallengeRecord, after time.Duration) {
	c.tasks.Schedule(key, record.Token, after, func() {
		c.expire(record)
	})
	pendingTasks.WithLabelValues("challenge").Set(float64(c.tasks.Len()))
}

// Verify completes the pending challenge. It returns false when there is none,
// e.g. it was already verified or it expired.
func (c *Coordinator) Verify(ctx context.Context, userID, groupID int64) (bool, error) {
	record, ok, err := c.store.GetChallenge(ctx, userID, groupID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	deleted, err := c.store.DeleteChallenge(ctx, userID, groupID, record.Token)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	c.tasks.Cancel(memberKey{UserID: userID, GroupID: groupID})
	pendingTasks.WithLabelValues("challenge").Set(float64(c.tasks.Len()))

	c.deletePrompt(ctx, groupID, record.MessageID, userID)
	if _, err := c.gateway.SendMessage(ctx, OutgoingMessage{
		ChatID: groupID,
		Text:   c.format.Text("captcha_verified", userID),
		HTML:   true,
	}); err != nil {
		logger.Warningf("Failed to post verification notice for user %d in group %d: %v", userID, groupID, err)
	}

	challengeOutcomes.WithLabelValues(outcomeVerified).Inc()
	logger.Infof("User %d passed the challenge in group %d", userID, groupID)
	return true, nil
}

// Cancel drops a pending challenge without punishing the user, e.g. when the
// user left before answering.
func (c *Coordinator) Cancel(ctx context.Context, userID, groupID int64) (bool, error) {
	record, ok, err := c.store.GetChallenge(ctx, userID, groupID)
	if err != nil || !ok {
		return false, err
	}
	deleted, err := c.store.DeleteChallenge(ctx, userID, groupID, record.Token)
	if err != nil || !deleted {
		return false, err
	}

	c.tasks.Cancel(memberKey{UserID: userID, GroupID: groupID})
	c.deletePrompt(ctx, groupID, record.MessageID, userID)
	challengeOutcomes.WithLabelValues(outcomeCanceled).Inc()
	return true, nil
}

// expire runs when the verification window of an issuance has passed.
func (c *Coordinator) expire(record models.ChallengeRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	key := memberKey{UserID: record.UserID, GroupID: record.GroupID}
	c.tasks.Finish(key, record.Token)
	pendingTasks.WithLabelValues("challenge").Set(float64(c.tasks.Len()))

	deleted, err := c.store.DeleteChallenge(ctx, record.UserID, record.GroupID, record.Token)
	if err != nil {
		logger.Errorf("Failed to clear expired challenge of user %d in group %d: %v", record.UserID, record.GroupID, err)
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		return
	}
	if !deleted {
		// verified, cancelled or reissued in the meantime
		return
	}

	if err := c.gateway.BanMember(ctx, record.GroupID, record.UserID, time.Time{}); err != nil {
		logger.Errorf("Failed to ban user %d after challenge timeout in group %d: %v", record.UserID, record.GroupID, err)
		pipelineErrors.WithLabelValues(errorGateway).Inc()
	} else if _, err := c.gateway.SendMessage(ctx, OutgoingMessage{
		ChatID: record.GroupID,
		Text:   c.format.Text("captcha_timeout", record.UserID),
		HTML:   true,
	}); err != nil {
		logger.Warningf("Failed to post timeout notice for user %d in group %d: %v", record.UserID, record.GroupID, err)
	}

	c.deletePrompt(ctx, record.GroupID, record.MessageID, record.UserID)
	challengeOutcomes.WithLabelValues(outcomeExpired).Inc()
	logger.Infof("User %d failed the challenge in group %d", record.UserID, record.GroupID)
}

func (c *Coordinator) deletePrompt(ctx context.Context, groupID int64, messageID int, userID int64) {
	if err := c.gateway.DeleteMessage(ctx, groupID, messageID); err != nil && !IsMessageNotFound(err) {
		logger.DeleteFailure(groupID, messageID, userID, err.Error())
	}
}

// Pending reports whether the user has an open challenge in the group.
func (c *Coordinator) Pending(ctx context.Context, userID, groupID int64) (bool, error) {
	_, ok, err := c.store.GetChallenge(ctx, userID, groupID)
	return ok, err
}

// Restore re-arms the timeouts of challenges persisted by a previous run.
// Challenges past their window expire immediately.
func (c *Coordinator) Restore(ctx context.Context) (int, error) {
	records, err := c.store.ListChallenges(ctx)
	if err != nil {
		return 0, err
	}

	now := c.clock.Now()
	for _, record := range records {
		if record.Token == "" {
			record.Token = NewToken()
			if err := c.store.PutChallenge(ctx, record); err != nil {
				logger.Warningf("Failed to assign token to challenge of user %d: %v", record.UserID, err)
				continue
			}
		}
		remaining := record.IssuedAt.Add(c.window).Sub(now)
		if remaining <= 0 {
			c.expire(record)
			continue
		}
		c.arm(memberKey{UserID: record.UserID, GroupID: record.GroupID}, record, remaining)
	}
	return len(records), nil
}

// Stop cancels the in-memory timers. Persisted challenges are kept for Restore.
func (c *Coordinator) Stop() {
	c.tasks.StopAll()
}
