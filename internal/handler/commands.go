package handler

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/moderation"
)

type commandFunc func(h *Handler, ctx context.Context, message telego.Message, args []string) error

type command struct {
	run        commandFunc
	groupOnly  bool
	adminsOnly bool
}

var commands = map[string]command{
	"start":              {run: (*Handler).cmdStart},
	"admins":             {run: (*Handler).cmdAdmins, groupOnly: true},
	"blocked_users":      {run: (*Handler).cmdBlocked, groupOnly: true, adminsOnly: true},
	"blocklists":         {run: (*Handler).cmdBlocked, groupOnly: true, adminsOnly: true},
	"ban":                {run: (*Handler).cmdBan, groupOnly: true, adminsOnly: true},
	"warn":               {run: (*Handler).cmdWarn, groupOnly: true, adminsOnly: true},
	"captcha":            {run: (*Handler).cmdCaptcha, groupOnly: true, adminsOnly: true},
	"admin_notification": {run: (*Handler).cmdAdminNotification, groupOnly: true},
	"stats":              {run: (*Handler).cmdStats, groupOnly: true, adminsOnly: true},
	"diag":               {run: (*Handler).cmdDiag, groupOnly: true},
	"logs":               {run: (*Handler).cmdLogs, groupOnly: true, adminsOnly: true},
}

// onCommand dispatches a bot command. Commands addressed to another bot and
// unknown commands are ignored.
func (h *Handler) onCommand(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	name, username, args := tu.ParseCommand(message.Text)
	if username != "" && !strings.EqualFold(username, h.self.Username) {
		return nil
	}
	name = strings.ToLower(name)

	logger.Infof("Incoming command: %q from user %d in chat %d (type=%s)",
		message.Text, message.From.ID, message.Chat.ID, message.Chat.Type)

	cmd, ok := commands[name]
	if !ok {
		return nil
	}

	if cmd.groupOnly && !moderation.ChatKind(message.Chat.Type).Monitored() {
		return h.reply(ctx, message, h.format.Text("groups_only"))
	}
	if cmd.adminsOnly {
		isAdmin, err := h.admins.IsAdmin(ctx, message.Chat.ID, message.From.ID)
		if err != nil {
			logger.Warningf("Failed to check admin rights of user %d in chat %d: %v", message.From.ID, message.Chat.ID, err)
		}
		if !isAdmin {
			return h.reply(ctx, message, h.format.Text("not_admin"))
		}
	}
	return cmd.run(h, ctx, message, args)
}

// cmdStart answers /start in private chats with an "add to group" button.
func (h *Handler) cmdStart(ctx context.Context, message telego.Message, _ []string) error {
	if moderation.ChatKind(message.Chat.Type) != moderation.ChatPrivate {
		return nil
	}
	return h.sendPrivate(ctx, message.Chat.ID, h.format.Text("start_text"), &moderation.Button{
		Text: h.format.Text("add_to_group_button"),
		URL:  fmt.Sprintf("https://t.me/%s?startgroup=new", h.self.Username),
	})
}

// cmdAdmins pings every admin of the group privately.
func (h *Handler) cmdAdmins(ctx context.Context, message telego.Message, _ []string) error {
	admins, err := h.admins.Administrators(ctx, message.Chat.ID)
	if err != nil || len(admins) == 0 {
		return h.reply(ctx, message, h.format.Text("no_admins"))
	}

	text := h.format.Text("admins_ping",
		chatTitle(message.Chat), message.From.ID, displayName(message.From), h.format.Clock(time.Unix(int64(message.Date), 0)))
	for _, adminID := range admins {
		if adminID == h.self.ID {
			continue
		}
		if err := h.sendPrivate(ctx, adminID, text, nil); err != nil {
			logger.Errorf("Failed to send admin notification to %d: %v", adminID, err)
		}
	}
	return h.reply(ctx, message, h.format.Text("admins_pinged"))
}

// cmdBlocked sends the group's block list to the requesting admin.
func (h *Handler) cmdBlocked(ctx context.Context, message telego.Message, _ []string) error {
	blocked, err := h.engine.Blocked(ctx, message.Chat.ID)
	if err != nil {
		logger.Errorf("Failed to list blocked users of group %d: %v", message.Chat.ID, err)
	}
	if len(blocked) == 0 {
		return h.reply(ctx, message, h.format.Text("blocked_empty"))
	}

	var b strings.Builder
	b.WriteString(h.format.Text("blocked_title", chatTitle(message.Chat)))
	for _, entry := range blocked {
		name := fmt.Sprintf("User %d", entry.UserID)
		member, err := h.client.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: tu.ID(message.Chat.ID),
			UserID: entry.UserID,
		})
		if err == nil {
			user := member.MemberUser()
			name = displayName(&user)
		}
		reason := entry.Reason
		if reason == "" {
			reason = h.format.Text("reason_missing")
		}
		b.WriteString(h.format.Text("blocked_entry", entry.UserID, name, reason, h.format.Timestamp(entry.BlockedAt)))
	}

	if err := h.sendPrivate(ctx, message.From.ID, b.String(), nil); err != nil {
		logger.Warningf("Failed to send block list to %d: %v", message.From.ID, err)
		return h.reply(ctx, message, h.format.Text("private_failed"))
	}
	return h.reply(ctx, message, h.format.Text("sent_privately"))
}

// cmdBan permanently removes the target user and records the block.
func (h *Handler) cmdBan(ctx context.Context, message telego.Message, args []string) error {
	targetID, targetName, ok := commandTarget(message, args)
	logger.Infof("/ban invoked by user=%d in chat=%d | target=%d", message.From.ID, message.Chat.ID, targetID)
	switch {
	case !ok:
		return h.reply(ctx, message, h.format.Text("ban_usage"))
	case targetID == message.From.ID:
		return h.reply(ctx, message, h.format.Text("ban_self"))
	case targetID == h.self.ID:
		return h.reply(ctx, message, h.format.Text("ban_bot"))
	}

	status, err := h.gateway.GetMemberStatus(ctx, message.Chat.ID, targetID)
	switch {
	case err != nil:
		logger.Warningf("Failed to look up ban target %d in chat %d: %v", targetID, message.Chat.ID, err)
		return h.reply(ctx, message, h.format.Text("ban_unknown"))
	case status.Absent():
		return h.reply(ctx, message, h.format.Text("ban_absent"))
	case status.Privileged():
		return h.reply(ctx, message, h.format.Text("ban_admin"))
	}

	if err := h.engine.BanByAdmin(ctx, message.Chat.ID, targetID, message.From.ID); err != nil {
		logger.Errorf("Ban error: %v", err)
		return h.reply(ctx, message, h.format.Text("ban_failed", html.EscapeString(err.Error())))
	}
	return h.reply(ctx, message, h.format.Text("ban_done", targetID, targetName))
}

// cmdWarn deletes the replied message and posts a warning.
func (h *Handler) cmdWarn(ctx context.Context, message telego.Message, args []string) error {
	if len(args) > 0 {
		return h.reply(ctx, message, h.format.Text("no_parameters", "warn"))
	}
	target := message.ReplyToMessage
	if target == nil || target.From == nil {
		return h.reply(ctx, message, h.format.Text("reply_required"))
	}

	if err := h.gateway.DeleteMessage(ctx, message.Chat.ID, target.MessageID); err != nil && !moderation.IsMessageNotFound(err) {
		logger.DeleteFailure(message.Chat.ID, target.MessageID, target.From.ID, err.Error())
		return h.reply(ctx, message, h.format.Text("warn_failed"))
	}
	return h.reply(ctx, message, h.format.Text("warn_done", target.From.ID, displayName(target.From)))
}

// cmdCaptcha issues a challenge to the author of the replied message.
func (h *Handler) cmdCaptcha(ctx context.Context, message telego.Message, args []string) error {
	if len(args) > 0 {
		return h.reply(ctx, message, h.format.Text("no_parameters", "captcha"))
	}
	target := message.ReplyToMessage
	if target == nil || target.From == nil {
		return h.reply(ctx, message, h.format.Text("reply_required"))
	}
	switch target.From.ID {
	case h.self.ID:
		return h.reply(ctx, message, h.format.Text("captcha_bot"))
	case message.From.ID:
		return h.reply(ctx, message, h.format.Text("captcha_self"))
	}

	if err := h.engine.Coordinator().Issue(ctx, target.From.ID, message.Chat.ID, displayName(target.From)); err != nil {
		logger.Errorf("Captcha command error: %v", err)
		return h.reply(ctx, message, h.format.Text("captcha_failed"))
	}
	return h.reply(ctx, message, h.format.Text("captcha_sent"))
}

// cmdAdminNotification sends every admin a link to the command message.
func (h *Handler) cmdAdminNotification(ctx context.Context, message telego.Message, args []string) error {
	if len(args) > 0 {
		return h.reply(ctx, message, h.format.Text("no_parameters", "admin_notification"))
	}
	admins, err := h.admins.Administrators(ctx, message.Chat.ID)
	if err != nil || len(admins) == 0 {
		return h.reply(ctx, message, h.format.Text("no_admins"))
	}

	text := h.format.Text("notify_title", chatTitle(message.Chat), message.From.ID, displayName(message.From), message.MessageID)
	var button *moderation.Button
	if link := messageLink(message.Chat, message.MessageID); link != "" {
		button = &moderation.Button{Text: h.format.Text("notify_open"), URL: link}
	} else {
		text += h.format.Text("notify_no_link")
	}

	sent := 0
	for _, adminID := range admins {
		if adminID == h.self.ID {
			continue
		}
		if err := h.sendPrivate(ctx, adminID, text, button); err != nil {
			logger.Warningf("Admin DM failed for %d: %v", adminID, err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return h.reply(ctx, message, h.format.Text("notify_none"))
	}
	return h.reply(ctx, message, h.format.Text("notify_done"))
}

// cmdStats reports the group's violation counters.
func (h *Handler) cmdStats(ctx context.Context, message telego.Message, _ []string) error {
	users, total, err := h.engine.Ledger().Stats(ctx, message.Chat.ID)
	if err != nil {
		logger.Errorf("Failed to read stats of group %d: %v", message.Chat.ID, err)
	}
	blocked, err := h.engine.Blocked(ctx, message.Chat.ID)
	if err != nil {
		logger.Errorf("Failed to list blocked users of group %d: %v", message.Chat.ID, err)
	}
	return h.reply(ctx, message, h.format.Text("stats_text", users, total, len(blocked)))
}

// cmdDiag reports the bot's own rights in the group.
func (h *Handler) cmdDiag(ctx context.Context, message telego.Message, _ []string) error {
	member, err := h.client.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(message.Chat.ID),
		UserID: h.self.ID,
	})
	if err != nil {
		logger.Errorf("Diag error: %v", err)
		return h.reply(ctx, message, h.format.Text("diag_failed", html.EscapeString(err.Error())))
	}

	var b strings.Builder
	b.WriteString(h.format.Text("diag_title"))
	for _, field := range diagFields(member) {
		fmt.Fprintf(&b, "- %s: <code>%s</code>\n", field[0], field[1])
	}
	fmt.Fprintf(&b, "\n<pre>%s</pre>", GetDetailedStatus())
	return h.reply(ctx, message, b.String())
}

// diagFields lists the permissions that moderation depends on.
func diagFields(member telego.ChatMember) [][2]string {
	fields := [][2]string{{"status", member.MemberStatus()}}
	admin, ok := member.(*telego.ChatMemberAdministrator)
	if !ok {
		return append(fields,
			[2]string{"can_delete_messages", "false"},
			[2]string{"can_restrict_members", "false"},
		)
	}
	return append(fields,
		[2]string{"can_delete_messages", fmt.Sprint(admin.CanDeleteMessages)},
		[2]string{"can_restrict_members", fmt.Sprint(admin.CanRestrictMembers)},
		[2]string{"can_manage_chat", fmt.Sprint(admin.CanManageChat)},
		[2]string{"can_invite_users", fmt.Sprint(admin.CanInviteUsers)},
	)
}

// cmdLogs sends the current log file to the requesting admin.
func (h *Handler) cmdLogs(ctx context.Context, message telego.Message, _ []string) error {
	f, err := os.Open(h.logFile())
	if err != nil {
		return h.reply(ctx, message, h.format.Text("logs_failed", html.EscapeString(err.Error())))
	}
	defer f.Close()

	_, err = h.client.SendDocument(ctx, &telego.SendDocumentParams{
		ChatID:   tu.ID(message.From.ID),
		Document: tu.File(f),
		Caption:  h.format.Text("logs_caption"),
	})
	if err != nil {
		return h.reply(ctx, message, h.format.Text("logs_failed", html.EscapeString(err.Error())))
	}
	return h.reply(ctx, message, h.format.Text("logs_sent"))
}
