package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/winvouch/giveaway-bot/giveawaybot"
	"github.com/winvouch/giveaway-bot/giveawaybot/commands"
	"github.com/winvouch/giveaway-bot/giveawaybot/components"
	"github.com/winvouch/giveaway-bot/giveawaybot/database"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
	"github.com/winvouch/giveaway-bot/giveawaybot/handlers"
	"github.com/winvouch/giveaway-bot/giveawaybot/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := giveawaybot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting giveaway bot",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	b := giveawaybot.New(*cfg, version, commit)
	b.DB = db
	b.GiveawayRepository = repositories.NewGiveawayRepository(db.BunDB())
	b.VouchRepository = repositories.NewVouchRepository(db.BunDB())
	b.GuildConfigRepository = repositories.NewGuildConfigRepository(db.BunDB())

	b.GiveawayManager = giveaway.NewManager(b.GiveawayRepository, b.VouchRepository, giveaway.NewPicker())
	b.VouchService = giveaway.NewVouchService(b.GiveawayRepository, b.VouchRepository, b.GuildConfigRepository, cfg.Giveaway.DefaultVouchChannel)

	announcer := handlers.NewAnnouncer()
	b.GiveawayManager.SetNotifier(announcer)

	b.Scheduler = giveaway.NewScheduler(b.GiveawayManager, b.GiveawayRepository, cfg.Giveaway.ScanIntervalDuration())

	h := handler.New()
	h.Command("/gw", handlers.WrapWithLogging("gw", commands.GWHandler(b)))
	h.Autocomplete("/gw", commands.PrizeAutocompleteHandler(b))
	h.Component("/giveaway/", handlers.WrapComponentWithLogging("giveaway-buttons", components.GiveawayButtonHandler(b)))

	vouchListener := handlers.NewVouchListener(b.VouchService)

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		bot.NewListenerFunc(vouchListener.OnMessageCreate)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	announcer.SetClient(b.Client)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	b.Scheduler.Start()
	defer b.Scheduler.Shutdown()

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}
