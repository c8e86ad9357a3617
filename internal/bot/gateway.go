package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"tg-moderation/internal/config"
	"tg-moderation/internal/moderation"
)

// Gateway implements moderation.Gateway on top of the Telegram Bot API.
// Outbound calls share one rate limiter and each call is bounded by a timeout.
type Gateway struct {
	bot     *telego.Bot
	limiter *rate.Limiter
	timeout time.Duration
}

var _ moderation.Gateway = (*Gateway)(nil)

// NewGateway builds a gateway. A non-positive rate disables throttling.
func NewGateway(bot *telego.Bot, cfg config.GatewayConfig) *Gateway {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

// call waits for the limiter and runs fn under the per-call timeout.
func (g *Gateway) call(ctx context.Context, op string, chatID int64, fn func(ctx context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return &moderation.GatewayError{Op: op, ChatID: chatID, Err: err}
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := fn(callCtx); err != nil {
		return &moderation.GatewayError{Op: op, ChatID: chatID, Err: err}
	}
	return nil
}

func (g *Gateway) SendMessage(ctx context.Context, msg moderation.OutgoingMessage) (int, error) {
	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: msg.ChatID},
		Text:   msg.Text,
	}
	if msg.HTML {
		params.ParseMode = telego.ModeHTML
	}
	if msg.Button != nil {
		params.ReplyMarkup = inlineKeyboard(*msg.Button)
	}

	var messageID int
	err := g.call(ctx, "sendMessage", msg.ChatID, func(ctx context.Context) error {
		sent, err := g.bot.SendMessage(ctx, params)
		if err != nil {
			return err
		}
		messageID = sent.MessageID
		return nil
	})
	return messageID, err
}

func (g *Gateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	err := g.call(ctx, "deleteMessage", chatID, func(ctx context.Context) error {
		return g.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    telego.ChatID{ID: chatID},
			MessageID: messageID,
		})
	})
	if err != nil && moderation.IsMessageNotFound(err) {
		return &moderation.GatewayError{Op: "deleteMessage", ChatID: chatID, Err: moderation.ErrMessageNotFound}
	}
	return err
}

func (g *Gateway) BanMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	return g.call(ctx, "banChatMember", chatID, func(ctx context.Context) error {
		return g.bot.BanChatMember(ctx, &telego.BanChatMemberParams{
			ChatID:    telego.ChatID{ID: chatID},
			UserID:    userID,
			UntilDate: untilDate(until),
		})
	})
}

func (g *Gateway) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	return g.call(ctx, "restrictChatMember", chatID, func(ctx context.Context) error {
		return g.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
			ChatID:      telego.ChatID{ID: chatID},
			UserID:      userID,
			Permissions: mutedPermissions(),
			UntilDate:   untilDate(until),
		})
	})
}

func (g *Gateway) UnbanMember(ctx context.Context, chatID, userID int64) error {
	return g.call(ctx, "unbanChatMember", chatID, func(ctx context.Context) error {
		return g.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
			ChatID:       telego.ChatID{ID: chatID},
			UserID:       userID,
			OnlyIfBanned: true,
		})
	})
}

func (g *Gateway) GetMemberStatus(ctx context.Context, chatID, userID int64) (moderation.MemberStatus, error) {
	var status moderation.MemberStatus
	err := g.call(ctx, "getChatMember", chatID, func(ctx context.Context) error {
		member, err := g.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: telego.ChatID{ID: chatID},
			UserID: userID,
		})
		if err != nil {
			return err
		}
		status = moderation.MemberStatus(member.MemberStatus())
		return nil
	})
	return status, err
}

func (g *Gateway) GetAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	var ids []int64
	err := g.call(ctx, "getChatAdministrators", chatID, func(ctx context.Context) error {
		admins, err := g.bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
			ChatID: telego.ChatID{ID: chatID},
		})
		if err != nil {
			return err
		}
		ids = make([]int64, 0, len(admins))
		for _, admin := range admins {
			ids = append(ids, admin.MemberUser().ID)
		}
		return nil
	})
	return ids, err
}

func (g *Gateway) GetChatKind(ctx context.Context, chatID int64) (moderation.ChatKind, error) {
	var kind moderation.ChatKind
	err := g.call(ctx, "getChat", chatID, func(ctx context.Context) error {
		chat, err := g.bot.GetChat(ctx, &telego.GetChatParams{
			ChatID: telego.ChatID{ID: chatID},
		})
		if err != nil {
			return err
		}
		kind = moderation.ChatKind(chat.Type)
		return nil
	})
	return kind, err
}

// untilDate converts a deadline to the API's unix seconds; zero means forever.
func untilDate(until time.Time) int64 {
	if until.IsZero() {
		return 0
	}
	return until.Unix()
}

func mutedPermissions() telego.ChatPermissions {
	no := telego.ToPtr(false)
	return telego.ChatPermissions{
		CanSendMessages:       no,
		CanSendAudios:         no,
		CanSendDocuments:      no,
		CanSendPhotos:         no,
		CanSendVideos:         no,
		CanSendVideoNotes:     no,
		CanSendVoiceNotes:     no,
		CanSendPolls:          no,
		CanSendOtherMessages:  no,
		CanAddWebPagePreviews: no,
		CanChangeInfo:         no,
		CanInviteUsers:        no,
		CanPinMessages:        no,
		CanManageTopics:       no,
	}
}

func inlineKeyboard(b moderation.Button) *telego.InlineKeyboardMarkup {
	button := telego.InlineKeyboardButton{Text: b.Text}
	if b.URL != "" {
		button.URL = b.URL
	} else {
		button.CallbackData = b.CallbackData
	}
	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{button}},
	}
}

// String identifies the gateway in startup logs.
func (g *Gateway) String() string {
	return fmt.Sprintf("telegram gateway (limit %.0f req/s, timeout %s)", float64(g.limiter.Limit()), g.timeout)
}
