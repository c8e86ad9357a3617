package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"tg-moderation/internal/moderation"
)

// reply answers message in its chat as HTML.
func (h *Handler) reply(ctx context.Context, message telego.Message, text string) error {
	_, err := h.client.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    tu.ID(message.Chat.ID),
		Text:      text,
		ParseMode: telego.ModeHTML,
		ReplyParameters: &telego.ReplyParameters{
			MessageID:                message.MessageID,
			AllowSendingWithoutReply: true,
		},
	})
	return err
}

// sendPrivate sends an HTML message to a user's private chat.
func (h *Handler) sendPrivate(ctx context.Context, userID int64, text string, button *moderation.Button) error {
	_, err := h.gateway.SendMessage(ctx, moderation.OutgoingMessage{
		ChatID: userID,
		Text:   text,
		HTML:   true,
		Button: button,
	})
	return err
}

func displayName(u *telego.User) string {
	if u == nil {
		return ""
	}
	return moderation.DisplayName(u.FirstName, u.LastName, u.Username, u.ID)
}

// messageText is the text that gets scanned: the text or the media caption.
func messageText(message telego.Message) string {
	if message.Text != "" {
		return message.Text
	}
	return message.Caption
}

// isCommand reports whether the message is a bot command in any form.
func isCommand(message telego.Message) bool {
	if strings.HasPrefix(message.Text, "/") {
		return true
	}
	for _, ent := range message.Entities {
		if ent.Type == telego.EntityTypeBotCommand {
			return true
		}
	}
	return false
}

// chatTitle falls back to a synthetic label for untitled chats.
func chatTitle(chat telego.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return fmt.Sprintf("Group %d", chat.ID)
}

// messageLink builds a t.me link to a group message. Only public groups and
// supergroups are linkable.
func messageLink(chat telego.Chat, messageID int) string {
	if chat.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", chat.Username, messageID)
	}
	id := strconv.FormatInt(chat.ID, 10)
	if strings.HasPrefix(id, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, "-100"), messageID)
	}
	return ""
}

// commandTarget resolves the user an admin command refers to: the replied
// message's author, then a text mention, then a numeric id argument.
func commandTarget(message telego.Message, args []string) (int64, string, bool) {
	if reply := message.ReplyToMessage; reply != nil && reply.From != nil {
		return reply.From.ID, displayName(reply.From), true
	}
	for _, ent := range message.Entities {
		if ent.Type == telego.EntityTypeTextMention && ent.User != nil {
			return ent.User.ID, displayName(ent.User), true
		}
	}
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil && id > 0 {
			return id, fmt.Sprintf("User %d", id), true
		}
	}
	return 0, "", false
}
