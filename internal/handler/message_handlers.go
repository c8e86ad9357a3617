package handler

import (
	"context"

	"github.com/mymmrac/telego"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/moderation"
)

// onMessage moderates a group message.
func (h *Handler) onMessage(ctx context.Context, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	kind := moderation.ChatKind(message.Chat.Type)
	if !kind.Monitored() {
		return nil
	}

	if message.Chat.Title != "" {
		if err := h.engine.Ledger().EnsureGroup(ctx, message.Chat.ID, message.Chat.Title); err != nil {
			logger.Warningf("Failed to provision group %d: %v", message.Chat.ID, err)
		}
	}

	if isCommand(message) {
		return nil
	}
	text := messageText(message)
	if text == "" {
		return nil
	}

	decision, err := h.engine.HandleMessage(ctx, toIncoming(message))
	if err != nil {
		return err
	}
	if decision != nil && !decision.Punished && decision.Action.Kind != moderation.ActionNone {
		logger.Warningf("Could not apply %s to user %d in group %d, check the bot's admin rights",
			decision.Action, message.From.ID, message.Chat.ID)
	}
	return nil
}

func toIncoming(message telego.Message) moderation.IncomingMessage {
	return moderation.IncomingMessage{
		ChatID:      message.Chat.ID,
		ChatKind:    moderation.ChatKind(message.Chat.Type),
		ChatTitle:   message.Chat.Title,
		MessageID:   message.MessageID,
		UserID:      message.From.ID,
		DisplayName: displayName(message.From),
		IsBot:       message.From.IsBot,
		Text:        messageText(message),
	}
}

// onChatMember handles membership changes of other users.
func (h *Handler) onChatMember(ctx context.Context, update telego.ChatMemberUpdated) error {
	upd := toMemberUpdate(update)
	if upd.OldStatus.Privileged() != upd.NewStatus.Privileged() {
		h.admins.Invalidate(upd.ChatID)
	}
	logger.Debugf("Chat member update: chat=%d user=%d %s -> %s", upd.ChatID, upd.UserID, upd.OldStatus, upd.NewStatus)
	return h.engine.HandleMemberUpdate(ctx, upd)
}

// onMyChatMember handles changes of the bot's own membership.
func (h *Handler) onMyChatMember(ctx context.Context, update telego.ChatMemberUpdated) error {
	upd := toMemberUpdate(update)
	h.admins.Invalidate(upd.ChatID)
	logger.Infof("Bot membership in chat %d (%s): %s -> %s", upd.ChatID, upd.ChatTitle, upd.OldStatus, upd.NewStatus)
	return h.engine.HandleMemberUpdate(ctx, upd)
}

func toMemberUpdate(update telego.ChatMemberUpdated) moderation.MemberUpdate {
	user := update.NewChatMember.MemberUser()
	return moderation.MemberUpdate{
		ChatID:      update.Chat.ID,
		ChatKind:    moderation.ChatKind(update.Chat.Type),
		ChatTitle:   update.Chat.Title,
		UserID:      user.ID,
		DisplayName: displayName(&user),
		IsBot:       user.IsBot,
		OldStatus:   memberStatus(update.OldChatMember),
		NewStatus:   memberStatus(update.NewChatMember),
	}
}

// memberStatus maps a chat member to its status. A restricted user who is
// not in the chat counts as having left.
func memberStatus(member telego.ChatMember) moderation.MemberStatus {
	if member == nil {
		return moderation.StatusNone
	}
	if restricted, ok := member.(*telego.ChatMemberRestricted); ok && !restricted.IsMember {
		return moderation.StatusLeft
	}
	return moderation.MemberStatus(member.MemberStatus())
}
