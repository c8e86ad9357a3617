package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-moderation/internal/config"
	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
)

// BotService bundles the Telegram client, its update handler and the HTTP
// server that feeds or observes it.
type BotService struct {
	Bot     *telego.Bot
	Handler *th.BotHandler
	Server  *Server
	Gateway *Gateway
	Self    *telego.User
}

// Start starts the bot handler; it blocks until Stop is called.
func (b *BotService) Start() {
	b.Handler.Start()
}

// Stop stops the bot handler
func (b *BotService) Stop() {
	b.Handler.Stop()
}

// telegoLogger routes telego's own diagnostics into the bot log.
type telegoLogger struct{}

func (telegoLogger) Debugf(format string, args ...any) { logger.Debugf("telego: "+format, args...) }
func (telegoLogger) Errorf(format string, args ...any) { logger.Errorf("telego: "+format, args...) }

// Initialize creates the bot, registers its command menu and opens the update
// source.
func Initialize(ctx context.Context, cfg *config.Config) (*BotService, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	bot, err := telego.NewBot(cfg.Bot.Token, telego.WithLogger(telegoLogger{}))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	self, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	logger.Infof("Authorized on account %s (%d)", self.Username, self.ID)

	setLocalizedCommands(ctx, bot, cfg.Moderation.Language)

	updates, server, err := SetupUpdates(ctx, bot, cfg.Bot.Webhook, secretToken(cfg.Bot.Token))
	if err != nil {
		return nil, fmt.Errorf("failed to setup updates: %w", err)
	}

	bh, err := th.NewBotHandler(bot, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot handler: %w", err)
	}

	return &BotService{
		Bot:     bot,
		Handler: bh,
		Server:  server,
		Gateway: NewGateway(bot, cfg.Gateway),
		Self:    self,
	}, nil
}

// secretToken derives the webhook secret from the bot token.
func secretToken(token string) string {
	suffix := token
	if len(token) > 6 {
		suffix = token[len(token)-6:]
	}
	return "secure_webhook_token_" + suffix
}

// BotCommands lists the command menu in the given language.
func BotCommands(lang string) []telego.BotCommand {
	names := []string{
		"start", "ban", "warn", "captcha", "blocked_users",
		"admins", "admin_notification", "stats", "diag", "logs",
	}
	commands := make([]telego.BotCommand, 0, len(names))
	for _, name := range names {
		commands = append(commands, telego.BotCommand{
			Command:     name,
			Description: models.GetTranslation(lang, "cmd_desc_"+name),
		})
	}
	return commands
}

// setLocalizedCommands sets the menu for every catalogue language and uses
// the configured language as the default.
func setLocalizedCommands(ctx context.Context, bot *telego.Bot, defaultLang string) {
	for _, lang := range []string{models.LangUzbek, models.LangEnglish} {
		err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
			Commands:     BotCommands(lang),
			LanguageCode: lang,
		})
		if err != nil {
			logger.Warningf("Failed to set bot commands for %s: %v", models.GetLanguageName(lang), err)
		}
	}

	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: BotCommands(defaultLang)}); err != nil {
		logger.Warningf("Failed to set default bot commands: %v", err)
	}
}
