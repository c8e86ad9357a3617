package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
	"tg-moderation/internal/storage"
)

// IncomingMessage is a user message observed in a chat.
type IncomingMessage struct {
	ChatID      int64
	ChatKind    ChatKind
	ChatTitle   string
	MessageID   int
	UserID      int64
	DisplayName string
	IsBot       bool
	// Text is the message text or media caption.
	Text string
}

// MemberUpdate is a membership transition of one user in a chat.
type MemberUpdate struct {
	ChatID      int64
	ChatKind    ChatKind
	ChatTitle   string
	UserID      int64
	DisplayName string
	IsBot       bool
	OldStatus   MemberStatus
	NewStatus   MemberStatus
}

// ChallengeResponse is a press on a challenge button.
type ChallengeResponse struct {
	ChatID     int64
	FromUserID int64
	Data       string
}

// CallbackOutcome is the result of a challenge response.
type CallbackOutcome int

const (
	CallbackVerified CallbackOutcome = iota
	CallbackNotFound
	CallbackWrongUser
	CallbackInvalid
)

// Decision is what the engine did about a message that matched the lexicon.
type Decision struct {
	Term   string
	Record models.ViolationRecord
	Action Action
	// Punished is false when the gateway refused the ban or restriction.
	Punished bool
}

// Options configures an Engine.
type Options struct {
	Lexicon         *Lexicon
	Policy          *Policy
	Stores          Stores
	Gateway         Gateway
	Clock           Clock
	Scheduler       Scheduler
	Formatter       *Formatter
	DailyWindow     time.Duration
	ChallengeWindow time.Duration
	// BotID is the platform id of the bot itself.
	BotID int64
}

// Engine turns inbound chat events into moderation actions.
type Engine struct {
	lexicon     *Lexicon
	policy      *Policy
	ledger      *Ledger
	coordinator *Coordinator
	notifier    *Notifier
	gateway     Gateway
	blocks      BlockStore
	clock       Clock
	format      *Formatter
	unbans      *TaskRegistry[memberKey]
	unbanStore  UnbanStore
	botID       int64
}

// NewEngine wires the engine components.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Lexicon == nil || opts.Policy == nil || opts.Gateway == nil {
		return nil, errors.New("engine needs a lexicon, a policy and a gateway")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemClock{}
	}
	if opts.Formatter == nil {
		opts.Formatter = NewFormatter(models.LangUzbek, time.Local)
	}
	if opts.DailyWindow <= 0 {
		opts.DailyWindow = 24 * time.Hour
	}
	if opts.ChallengeWindow <= 0 {
		opts.ChallengeWindow = 30 * time.Minute
	}

	return &Engine{
		lexicon:     opts.Lexicon,
		policy:      opts.Policy,
		ledger:      NewLedger(opts.Stores.Violations, opts.Stores.Groups, opts.Clock, opts.DailyWindow),
		coordinator: NewCoordinator(opts.Gateway, opts.Stores.Challenges, opts.Clock, opts.Scheduler, opts.ChallengeWindow, opts.Formatter),
		notifier:    NewNotifier(opts.Gateway, opts.Stores.Notices, opts.Clock, opts.Scheduler, opts.Formatter),
		gateway:     opts.Gateway,
		blocks:      opts.Stores.Blocks,
		clock:       opts.Clock,
		format:      opts.Formatter,
		unbans:      NewTaskRegistry[memberKey]("basic-group-unban", opts.Scheduler),
		unbanStore:  opts.Stores.Unbans,
		botID:       opts.BotID,
	}, nil
}

func (e *Engine) Ledger() *Ledger           { return e.ledger }
func (e *Engine) Coordinator() *Coordinator { return e.coordinator }
func (e *Engine) Notifier() *Notifier       { return e.notifier }
func (e *Engine) Formatter() *Formatter     { return e.format }
func (e *Engine) Lexicon() *Lexicon         { return e.lexicon }

// HandleMessage moderates one message. It returns nil when the message is
// clean or not moderated. An empty ChatKind is resolved through the gateway
// when a restriction needs it. A storage failure aborts the decision; the matched
// message is still removed.
func (e *Engine) HandleMessage(ctx context.Context, msg IncomingMessage) (*Decision, error) {
	if (msg.ChatKind != "" && !msg.ChatKind.Monitored()) || msg.IsBot || msg.UserID == e.botID {
		return nil, nil
	}
	messagesScanned.Inc()

	term, ok := e.lexicon.Match(msg.Text)
	if !ok {
		return nil, nil
	}
	lexiconMatches.Inc()

	label := msg.ChatTitle
	if label == "" {
		label = models.DefaultGroupTitle(msg.ChatID)
	}

	record, err := e.ledger.Record(ctx, msg.UserID, msg.ChatID, label)
	if err != nil {
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		e.deleteOffending(ctx, msg)
		return nil, fmt.Errorf("record violation of user %d in group %d: %w", msg.UserID, msg.ChatID, err)
	}

	action := e.policy.Decide(record.DailyCount)
	logger.Infof("Violation: user=%d group=%d term=%q total=%d daily=%d action=%s",
		msg.UserID, msg.ChatID, term, record.TotalCount, record.DailyCount, action)

	e.deleteOffending(ctx, msg)

	decision := &Decision{Term: term, Record: record, Action: action}
	switch action.Kind {
	case ActionBan:
		decision.Punished = e.ban(ctx, msg, record)
	case ActionRestrict:
		decision.Punished = e.restrict(ctx, msg, record, action)
	}
	actionsApplied.WithLabelValues(action.Kind.String()).Inc()
	return decision, nil
}

func (e *Engine) deleteOffending(ctx context.Context, msg IncomingMessage) {
	if err := e.gateway.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil && !IsMessageNotFound(err) {
		pipelineErrors.WithLabelValues(errorGateway).Inc()
		logger.DeleteFailure(msg.ChatID, msg.MessageID, msg.UserID, err.Error())
	}
}

func (e *Engine) ban(ctx context.Context, msg IncomingMessage, record models.ViolationRecord) bool {
	action := Action{Kind: ActionBan}

	if err := e.gateway.BanMember(ctx, msg.ChatID, msg.UserID, time.Time{}); err != nil {
		pipelineErrors.WithLabelValues(errorGateway).Inc()
		logger.Errorf("Failed to ban user %d in group %d: %v", msg.UserID, msg.ChatID, err)
		return false
	}
	e.cancelUnban(ctx, msg.ChatID, msg.UserID)

	if err := e.ledger.Clear(ctx, msg.UserID, msg.ChatID); err != nil {
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		logger.Errorf("Failed to clear violations of banned user %d in group %d: %v", msg.UserID, msg.ChatID, err)
	}
	if err := e.blocks.AddBlocked(ctx, models.BlockedUser{
		UserID:    msg.UserID,
		GroupID:   msg.ChatID,
		Reason:    e.format.Text("ban_reason_auto"),
		BlockedAt: e.clock.Now(),
	}); err != nil {
		logger.Warningf("Failed to record block of user %d in group %d: %v", msg.UserID, msg.ChatID, err)
	}

	e.postNotice(ctx, msg, record, action)
	e.warnPrivately(ctx, msg.UserID, record, action)
	return true
}

func (e *Engine) restrict(ctx context.Context, msg IncomingMessage, record models.ViolationRecord, action Action) bool {
	applied := e.applyRestriction(ctx, msg, action.Duration)
	e.postNotice(ctx, msg, record, action)
	if applied {
		e.warnPrivately(ctx, msg.UserID, record, action)
	}
	return applied
}

// applyRestriction mutes the user for d. Basic groups cannot mute, so the user
// is removed and let back in once d has passed.
func (e *Engine) applyRestriction(ctx context.Context, msg IncomingMessage, d time.Duration) bool {
	kind := msg.ChatKind
	if kind == "" {
		var err error
		if kind, err = e.gateway.GetChatKind(ctx, msg.ChatID); err != nil {
			logger.Warningf("Failed to resolve kind of chat %d, assuming supergroup: %v", msg.ChatID, err)
			kind = ChatSupergroup
		}
	}

	if kind == ChatGroup {
		if err := e.gateway.BanMember(ctx, msg.ChatID, msg.UserID, time.Time{}); err != nil {
			pipelineErrors.WithLabelValues(errorGateway).Inc()
			logger.Errorf("Failed to remove user %d from group %d: %v", msg.UserID, msg.ChatID, err)
			return false
		}
		e.scheduleUnban(ctx, msg.ChatID, msg.UserID, d)
		return true
	}

	until := e.clock.Now().Add(d)
	if err := e.gateway.RestrictMember(ctx, msg.ChatID, msg.UserID, until); err != nil {
		pipelineErrors.WithLabelValues(errorGateway).Inc()
		logger.Errorf("Failed to restrict user %d in group %d: %v", msg.UserID, msg.ChatID, err)
		return false
	}
	return true
}

// scheduleUnban persists the unban that ends a basic-group restriction and
// arms its timer.
func (e *Engine) scheduleUnban(ctx context.Context, groupID, userID int64, d time.Duration) {
	unban := models.PendingUnban{
		UserID:  userID,
		GroupID: groupID,
		Token:   NewToken(),
		UnbanAt: e.clock.Now().Add(d),
	}
	persisted := true
	if err := e.unbanStore.PutUnban(ctx, unban); err != nil {
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		logger.Errorf("Failed to persist unban of user %d in group %d: %v", userID, groupID, err)
		persisted = false
	}
	e.armUnban(unban, d, persisted)
}

func (e *Engine) armUnban(unban models.PendingUnban, d time.Duration, persisted bool) {
	key := memberKey{UserID: unban.UserID, GroupID: unban.GroupID}
	e.unbans.Schedule(key, unban.Token, d, func() {
		if !e.unbans.Finish(key, unban.Token) {
			return
		}
		pendingTasks.WithLabelValues("unban").Set(float64(e.unbans.Len()))
		e.liftBan(unban, persisted)
	})
	pendingTasks.WithLabelValues("unban").Set(float64(e.unbans.Len()))
}

// liftBan unbans the user unless the persisted schedule was superseded or
// cancelled in the meantime.
func (e *Engine) liftBan(unban models.PendingUnban, persisted bool) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	deleted, err := e.unbanStore.DeleteUnban(ctx, unban.UserID, unban.GroupID, unban.Token)
	if err != nil {
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		logger.Errorf("Failed to delete unban of user %d in group %d: %v", unban.UserID, unban.GroupID, err)
	} else if !deleted && persisted {
		return
	}

	if err := e.gateway.UnbanMember(ctx, unban.GroupID, unban.UserID); err != nil {
		pipelineErrors.WithLabelValues(errorGateway).Inc()
		logger.Errorf("Failed to unban user %d in group %d: %v", unban.UserID, unban.GroupID, err)
		return
	}
	logger.Infof("User %d unbanned in group %d", unban.UserID, unban.GroupID)
}

// cancelUnban drops a pending unban so a permanent ban stays in place.
func (e *Engine) cancelUnban(ctx context.Context, groupID, userID int64) {
	e.unbans.Cancel(memberKey{UserID: userID, GroupID: groupID})
	pendingTasks.WithLabelValues("unban").Set(float64(e.unbans.Len()))
	if _, err := e.unbanStore.DeleteUnban(ctx, userID, groupID, ""); err != nil {
		logger.Warningf("Failed to drop pending unban of user %d in group %d: %v", userID, groupID, err)
	}
}

// restoreUnbans re-arms the unbans persisted by a previous run. Overdue ones
// fire at once.
func (e *Engine) restoreUnbans(ctx context.Context) (int, error) {
	unbans, err := e.unbanStore.ListUnbans(ctx)
	if err != nil {
		return 0, err
	}
	now := e.clock.Now()
	for _, unban := range unbans {
		e.armUnban(unban, unban.UnbanAt.Sub(now), true)
	}
	return len(unbans), nil
}

func (e *Engine) postNotice(ctx context.Context, msg IncomingMessage, record models.ViolationRecord, action Action) {
	_, err := e.notifier.PostViolationNotice(ctx, NoticeRequest{
		GroupID:     msg.ChatID,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		Record:      record,
		Action:      action,
	})
	if err != nil {
		pipelineErrors.WithLabelValues(errorGateway).Inc()
		logger.Errorf("Failed to post notice for user %d in group %d: %v", msg.UserID, msg.ChatID, err)
	}
}

func (e *Engine) warnPrivately(ctx context.Context, userID int64, record models.ViolationRecord, action Action) {
	text := e.format.Text("private_warning", record.DailyCount, e.format.ActionDuration(action))
	if _, err := e.gateway.SendMessage(ctx, OutgoingMessage{ChatID: userID, Text: text}); err != nil {
		// users who never started the bot cannot be messaged
		logger.Warningf("Failed to send private warning to user %d: %v", userID, err)
	}
}

// HandleMemberUpdate provisions groups the bot joins and challenges users who
// join a group.
func (e *Engine) HandleMemberUpdate(ctx context.Context, upd MemberUpdate) error {
	if !upd.ChatKind.Monitored() {
		return nil
	}

	if upd.UserID == e.botID {
		if upd.NewStatus == StatusMember || upd.NewStatus == StatusAdministrator {
			label := upd.ChatTitle
			if label == "" {
				label = models.DefaultGroupTitle(upd.ChatID)
			}
			logger.Infof("Bot added to group %s (%d)", label, upd.ChatID)
			return e.ledger.EnsureGroup(ctx, upd.ChatID, label)
		}
		return nil
	}
	if upd.IsBot {
		return nil
	}

	switch {
	case upd.OldStatus.Absent() && upd.NewStatus == StatusMember:
		return e.coordinator.Issue(ctx, upd.UserID, upd.ChatID, upd.DisplayName)
	case !upd.OldStatus.Absent() && upd.NewStatus.Absent():
		_, err := e.coordinator.Cancel(ctx, upd.UserID, upd.ChatID)
		return err
	}
	return nil
}

// HandleChallengeResponse verifies the challenge named by the button payload.
// Only the challenged user may answer.
func (e *Engine) HandleChallengeResponse(ctx context.Context, resp ChallengeResponse) (CallbackOutcome, error) {
	target, ok := ParseCallbackData(resp.Data)
	if !ok {
		return CallbackInvalid, nil
	}
	if target != resp.FromUserID {
		challengeOutcomes.WithLabelValues(outcomeRejected).Inc()
		return CallbackWrongUser, nil
	}

	verified, err := e.coordinator.Verify(ctx, target, resp.ChatID)
	if err != nil {
		pipelineErrors.WithLabelValues(errorStorage).Inc()
		return CallbackNotFound, err
	}
	if !verified {
		return CallbackNotFound, nil
	}
	return CallbackVerified, nil
}

// BanByAdmin permanently removes a user on an admin's request.
func (e *Engine) BanByAdmin(ctx context.Context, groupID, userID, adminID int64) error {
	if err := e.gateway.BanMember(ctx, groupID, userID, time.Time{}); err != nil {
		return err
	}
	e.cancelUnban(ctx, groupID, userID)
	if err := e.ledger.Clear(ctx, userID, groupID); err != nil {
		logger.Warningf("Failed to clear violations of user %d in group %d: %v", userID, groupID, err)
	}
	if _, err := e.coordinator.Cancel(ctx, userID, groupID); err != nil {
		logger.Warningf("Failed to cancel challenge of user %d in group %d: %v", userID, groupID, err)
	}
	return e.blocks.AddBlocked(ctx, models.BlockedUser{
		UserID:    userID,
		GroupID:   groupID,
		BlockedBy: adminID,
		Reason:    e.format.Text("ban_reason_admin"),
		BlockedAt: e.clock.Now(),
	})
}

// Blocked lists the permanent bans of a group.
func (e *Engine) Blocked(ctx context.Context, groupID int64) ([]models.BlockedUser, error) {
	return e.blocks.ListBlocked(ctx, groupID)
}

// Restore re-arms the challenge timeouts, notice retractions and basic-group
// unbans persisted by a previous run.
func (e *Engine) Restore(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.coordinator.Restore(gctx)
		if err != nil {
			return fmt.Errorf("restore challenges: %w", err)
		}
		logger.Infof("Restored %d pending challenges", n)
		return nil
	})
	g.Go(func() error {
		n, err := e.notifier.Restore(gctx)
		if err != nil {
			return fmt.Errorf("restore notices: %w", err)
		}
		logger.Infof("Restored %d pending notices", n)
		return nil
	})
	g.Go(func() error {
		n, err := e.restoreUnbans(gctx)
		if err != nil {
			return fmt.Errorf("restore unbans: %w", err)
		}
		logger.Infof("Restored %d pending unbans", n)
		return nil
	})
	return g.Wait()
}

// Stop cancels every in-memory timer.
func (e *Engine) Stop() {
	e.coordinator.Stop()
	e.notifier.Stop()
	e.unbans.StopAll()
}

// IsStorageError reports whether err came from the persistence layer.
func IsStorageError(err error) bool {
	var se *storage.StorageError
	return errors.As(err, &se)
}
