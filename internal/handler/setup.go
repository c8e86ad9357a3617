package handler

import (
	"context"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-moderation/internal/moderation"
)

// Register configures all bot message and update handlers. Commands are
// routed before plain messages so they are never scanned by the lexicon.
func (h *Handler) Register(bh *th.BotHandler) {
	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return track("command", &totalCommands, func(c context.Context) error {
			return h.onCommand(c, message)
		})(ctx.Context())
	}, th.AnyCommand())

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		return track("message", &totalMessagesProcessed, func(c context.Context) error {
			return h.onMessage(c, message)
		})(ctx.Context())
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return track("chat_member", &totalChatMemberUpdates, func(c context.Context) error {
			return h.onChatMember(c, *update.ChatMember)
		})(ctx.Context())
	}, th.AnyChatMember())

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return track("my_chat_member", &totalChatMemberUpdates, func(c context.Context) error {
			return h.onMyChatMember(c, *update.MyChatMember)
		})(ctx.Context())
	}, th.AnyMyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return track("callback", &totalCallbackQueries, func(c context.Context) error {
			return h.onCallbackQuery(c, query)
		})(ctx.Context())
	}, th.CallbackDataPrefix(moderation.CallbackPrefix))
}
