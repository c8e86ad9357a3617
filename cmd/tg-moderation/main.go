package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"tg-moderation/internal/bot"
	"tg-moderation/internal/config"
	"tg-moderation/internal/crash"
	"tg-moderation/internal/handler"
	"tg-moderation/internal/logger"
	"tg-moderation/internal/service"
	"tg-moderation/internal/storage"
)

const (
	handlerDrainTimeout = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "tg-moderation",
		Usage: "Telegram group moderation bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "path to configuration file",
				EnvVars: []string{"TG_MODERATION_CONFIG"},
			},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bot (default)",
				Action: runBot,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: runMigrate,
			},
			{
				Name:  "reset",
				Usage: "drop and recreate every table",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
				},
				Action: runReset,
			},
			{
				Name:   "status",
				Usage:  "show the tables and their row counts",
				Action: runStatus,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Setup(cfg); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, nil
}

func runBot(cctx *cli.Context) error {
	defer crash.RecoverWithStackAndExit("main")
	crash.SetupCrashHandler()

	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	stores, err := service.OpenStores(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Warningf("Failed to close database: %v", err)
		}
	}()

	botService, err := bot.Initialize(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	logger.Infof("Using %s", botService.Gateway)

	engine, err := service.BuildEngine(cfg, stores, botService.Gateway, botService.Self.ID)
	if err != nil {
		return fmt.Errorf("failed to build moderation engine: %w", err)
	}

	h := handler.New(botService.Bot, engine, botService.Gateway,
		service.NewAdminCache(botService.Gateway, 0), *botService.Self, logger.LogFilePath)
	h.Register(botService.Handler)

	// timers persisted by the previous run fire against the live gateway
	if err := engine.Restore(ctx); err != nil {
		logger.Errorf("Failed to restore pending tasks: %v", err)
	}
	handler.StartStatusMonitoring(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := botService.Server.Start(); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting bot handler...")
		botService.Start()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down, waiting for message handlers to complete...")

		botService.Stop()
		if handler.WaitForHandlers(handlerDrainTimeout) {
			logger.Info("All message handlers completed")
		} else {
			logger.Warning("Timeout waiting for message handlers, proceeding with shutdown")
		}
		engine.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := botService.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Bot gracefully stopped")
	return nil
}

// openDatabase connects for the maintenance commands, which need the
// database to be enabled.
func openDatabase(cctx *cli.Context) (*config.Config, func(), error) {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Database.Enabled {
		return nil, nil, errors.New("database is not enabled in configuration")
	}
	db, err := storage.Open(cfg.Database, cfg.Logger.Level)
	if err != nil {
		return nil, nil, err
	}
	storage.DB = db
	return cfg, func() { _ = storage.Close() }, nil
}

func runMigrate(cctx *cli.Context) error {
	_, closeDB, err := openDatabase(cctx)
	if err != nil {
		return err
	}
	defer closeDB()

	fmt.Println("Migrating database...")
	if err := storage.Migrate(storage.GetDB()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Migration completed successfully")
	return nil
}

func runReset(cctx *cli.Context) error {
	_, closeDB, err := openDatabase(cctx)
	if err != nil {
		return err
	}
	defer closeDB()

	if !cctx.Bool("yes") {
		fmt.Print("WARNING: This will delete all data! Are you sure? (y/N): ")
		var confirmation string
		_, _ = fmt.Scanln(&confirmation)
		if confirmation != "y" && confirmation != "Y" {
			return errors.New("operation cancelled by user")
		}
	}

	fmt.Println("Resetting database...")
	if err := storage.Reset(storage.GetDB()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Println("Database reset completed successfully")
	return nil
}

func runStatus(cctx *cli.Context) error {
	cfg, closeDB, err := openDatabase(cctx)
	if err != nil {
		return err
	}
	defer closeDB()

	fmt.Printf("Checking database status (%s)...\n", cfg.Database.Driver)
	tables, err := storage.Status(storage.GetDB())
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}
	for _, t := range tables {
		if !t.Exists {
			fmt.Printf("❌ %s table does not exist\n", t.Table)
			continue
		}
		fmt.Printf("✅ %s table exists\n", t.Table)
		fmt.Printf("   - Contains %d records\n", t.Rows)
	}
	return nil
}
