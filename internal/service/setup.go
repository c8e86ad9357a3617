package service

import (
	"fmt"

	"tg-moderation/internal/config"
	"tg-moderation/internal/logger"
	"tg-moderation/internal/moderation"
	"tg-moderation/internal/storage"
)

// OpenStores connects the moderation stores to the configured database, or to
// an in-process store when the database is disabled.
func OpenStores(cfg *config.Config) (moderation.Stores, error) {
	if !cfg.Database.Enabled {
		logger.Warningf("Database disabled: violations, challenges and notices will not survive a restart")
		return moderation.MemoryStores(storage.NewMemoryStore()), nil
	}

	if err := storage.Initialize(cfg); err != nil {
		return moderation.Stores{}, fmt.Errorf("failed to initialize database: %w", err)
	}
	return moderation.DatabaseStores(storage.NewRepositories(storage.GetDB())), nil
}

// BuildEngine assembles the moderation engine from configuration.
func BuildEngine(cfg *config.Config, stores moderation.Stores, gateway moderation.Gateway, botID int64) (*moderation.Engine, error) {
	lexicon, err := moderation.NewLexicon(cfg.Moderation.Lexicon)
	if err != nil {
		return nil, err
	}
	policy, err := moderation.NewPolicy(cfg.Moderation.PunishmentLadder, cfg.Moderation.BanThreshold)
	if err != nil {
		return nil, err
	}

	logger.Infof("Moderation: %d lexicon terms, ladder %v, ban at %d daily violations, language %s",
		lexicon.Len(), cfg.Moderation.PunishmentLadder, policy.BanThreshold(), cfg.Moderation.Language)

	return moderation.NewEngine(moderation.Options{
		Lexicon:         lexicon,
		Policy:          policy,
		Stores:          stores,
		Gateway:         gateway,
		Formatter:       moderation.NewFormatter(cfg.Moderation.Language, cfg.Moderation.Location()),
		DailyWindow:     cfg.Moderation.DailyWindow,
		ChallengeWindow: cfg.Moderation.ChallengeWindow,
		BotID:           botID,
	})
}
