package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amongthesloths/trophybot/internal/auth"
	"github.com/amongthesloths/trophybot/internal/bot"
	"github.com/amongthesloths/trophybot/internal/config"
	"github.com/amongthesloths/trophybot/internal/database"
	"github.com/amongthesloths/trophybot/internal/handlers"
	"github.com/amongthesloths/trophybot/internal/logging"
	"github.com/amongthesloths/trophybot/internal/notifier"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	logger := logging.Setup(cfg.LogLevel, cfg.LogPretty)
	lg := logging.Component("main")

	// Connect to Database
	db, err := database.Open(cfg, logger)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			lg.Error().Err(err).Msg("failed to close database")
		}
	}()

	svc := trophy.NewService(db, trophy.WithLogger(logger))

	// Discord is optional; without a token only the HTTP API runs.
	var awardNotifier notifier.Notifier
	var discordBot *bot.Bot
	if cfg.DiscordBotToken != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			lg.Fatal().Err(err).Msg("failed to create discord session")
		}

		if cfg.DiscordNotificationsChannelID != "" {
			awardNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID, logger)
		}

		discordBot = bot.New(session, svc, cfg, logger,
			bot.WithNotifier(awardNotifier),
			bot.WithBackup(func(ctx context.Context) (string, error) {
				return database.Backup(ctx, db, cfg.BackupDir)
			}),
		)
		if err := discordBot.Start(); err != nil {
			lg.Fatal().Err(err).Msg("failed to start discord bot")
		}
		defer func() {
			if err := discordBot.Close(); err != nil {
				lg.Error().Err(err).Msg("failed to close discord session")
			}
		}()
	} else {
		lg.Warn().Msg("DISCORD_BOT_TOKEN not set, running without the discord bot")
	}

	authHandler := auth.NewAuthHandler(cfg, logger)
	trophyHandler := handlers.NewTrophyHandler(svc, awardNotifier, authHandler, cfg.LeaderboardSize, logger)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, trophyHandler, logging.Component("http"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Info().Str("addr", srv.Addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("http server shutdown failed")
	}
}
