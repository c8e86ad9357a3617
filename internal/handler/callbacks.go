package handler

import (
	"context"

	"github.com/mymmrac/telego"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/moderation"
)

// onCallbackQuery answers a challenge button press.
func (h *Handler) onCallbackQuery(ctx context.Context, query telego.CallbackQuery) error {
	chatID, ok := callbackChatID(query)
	if !ok {
		return h.answer(ctx, query, "", false)
	}

	outcome, err := h.engine.HandleChallengeResponse(ctx, moderation.ChallengeResponse{
		ChatID:     chatID,
		FromUserID: query.From.ID,
		Data:       query.Data,
	})
	if err != nil {
		logger.Errorf("Failed to verify challenge in chat %d for user %d: %v", chatID, query.From.ID, err)
	}

	switch outcome {
	case moderation.CallbackVerified:
		return h.answer(ctx, query, h.format.Text("captcha_ok"), false)
	case moderation.CallbackWrongUser:
		return h.answer(ctx, query, h.format.Text("captcha_not_yours"), true)
	case moderation.CallbackNotFound:
		return h.answer(ctx, query, h.format.Text("captcha_missing"), true)
	default:
		return h.answer(ctx, query, "", false)
	}
}

func (h *Handler) answer(ctx context.Context, query telego.CallbackQuery, text string, alert bool) error {
	return h.client.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// callbackChatID returns the chat of the message carrying the button.
func callbackChatID(query telego.CallbackQuery) (int64, bool) {
	switch msg := query.Message.(type) {
	case *telego.Message:
		return msg.Chat.ID, true
	case *telego.InaccessibleMessage:
		return msg.Chat.ID, true
	default:
		return 0, false
	}
}
