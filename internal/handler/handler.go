package handler

import (
	"context"

	"github.com/mymmrac/telego"

	"tg-moderation/internal/moderation"
	"tg-moderation/internal/service"
)

// Client is the subset of the Bot API the handlers call directly. The
// moderation actions themselves go through the engine's gateway.
type Client interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendDocument(ctx context.Context, params *telego.SendDocumentParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error)
}

var _ Client = (*telego.Bot)(nil)

// Handler turns Telegram updates into engine calls and serves the admin
// commands.
type Handler struct {
	client  Client
	engine  *moderation.Engine
	gateway moderation.Gateway
	admins  *service.AdminCache
	format  *moderation.Formatter
	self    telego.User
	logFile func() string
}

// New creates a handler. self is the bot's own account.
func New(client Client, engine *moderation.Engine, gateway moderation.Gateway, admins *service.AdminCache, self telego.User, logFile func() string) *Handler {
	return &Handler{
		client:  client,
		engine:  engine,
		gateway: gateway,
		admins:  admins,
		format:  engine.Formatter(),
		self:    self,
		logFile: logFile,
	}
}
