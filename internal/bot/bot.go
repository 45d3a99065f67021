// Package bot is the Discord front end: slash commands and buttons on top of
// the trophy service.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amongthesloths/trophybot/internal/config"
	"github.com/amongthesloths/trophybot/internal/metrics"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/amongthesloths/trophybot/internal/notifier"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Discord drops interactions that are not answered within three seconds.
const interactionTimeout = 2500 * time.Millisecond

type TrophyService interface {
	CreateTrophy(ctx context.Context, name, description, emoji, createdBy string) (*models.Trophy, error)
	GetTrophyByID(ctx context.Context, id uint) (*models.Trophy, error)
	CountTrophies(ctx context.Context) (int64, error)
	ListAllTrophies(ctx context.Context) ([]models.Trophy, error)
	AwardTrophy(ctx context.Context, userID string, trophyID uint, awardedBy string) (*models.Award, error)
	RemoveTrophy(ctx context.Context, userID string, trophyID uint) error
	GetUserTrophies(ctx context.Context, userID string) ([]models.Award, error)
	GetUsersWithTrophy(ctx context.Context, trophyID uint) ([]models.Award, error)
	GetLeaderboard(ctx context.Context, limit int) ([]trophy.LeaderboardEntry, error)
	ResetAwards(ctx context.Context) (int64, error)
}

// BackupFunc writes a copy of the store and returns where it went.
type BackupFunc func(ctx context.Context) (string, error)

type Option func(*Bot)

// WithNotifier announces awards made through the bot.
func WithNotifier(n notifier.Notifier) Option {
	return func(b *Bot) { b.notifier = n }
}

// WithBackup enables /admin backup.
func WithBackup(fn BackupFunc) Option {
	return func(b *Bot) { b.backup = fn }
}

type Bot struct {
	session  *discordgo.Session
	svc      TrophyService
	notifier notifier.Notifier
	backup   BackupFunc
	cfg      *config.Config
	logger   zerolog.Logger
}

func New(session *discordgo.Session, svc TrophyService, cfg *config.Config, lg zerolog.Logger, opts ...Option) *Bot {
	b := &Bot{
		session: session,
		svc:     svc,
		cfg:     cfg,
		logger:  lg.With().Str("component", "bot").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start connects to the gateway and registers the slash commands, scoped to
// the configured guild when one is set.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord session ready")
	})
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	appID := b.cfg.DiscordClientID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.DiscordGuildID, Commands()); err != nil {
		_ = b.session.Close()
		return fmt.Errorf("register slash commands: %w", err)
	}

	b.logger.Info().Str("guild_id", b.cfg.DiscordGuildID).Int("commands", len(Commands())).Msg("slash commands registered")
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	resp := b.Handle(ctx, ic.Interaction)
	if resp == nil {
		return
	}
	if err := s.InteractionRespond(ic.Interaction, resp); err != nil {
		b.logger.Error().Err(err).Str("interaction_id", ic.ID).Msg("failed to respond to interaction")
	}
}

// Handle computes the response to an interaction. It returns nil for
// interaction types the bot does not answer.
func (b *Bot) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		return b.handleComponent(ctx, i)
	default:
		return nil
	}
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return ephemeral("Unknown command!")
	}
	sub := data.Options[0]
	opts := options(sub.Options)
	metrics.ObserveInteraction("command", data.Name+" "+sub.Name)

	switch data.Name + " " + sub.Name {
	case "trophy create":
		if !b.isAdmin(i) {
			return ephemeral("You do not have permission to create trophies!")
		}
		return b.createTrophy(ctx, i, opts)
	case "trophy award":
		if !b.isAdmin(i) {
			return ephemeral("You do not have permission to award trophies!")
		}
		return b.awardTrophy(ctx, i, opts)
	case "trophy remove":
		if !b.isAdmin(i) {
			return ephemeral("You do not have permission to remove trophies!")
		}
		return b.removeTrophy(ctx, opts)
	case "trophy list":
		return b.listTrophies(ctx, 1, false)
	case "trophy show":
		return b.showTrophy(ctx, opts)
	case "trophy profile":
		return b.showProfile(ctx, i, data, opts)
	case "trophy leaderboard":
		return b.showLeaderboard(ctx)
	case "admin reset", "admin backup":
		if !b.isAdmin(i) {
			return ephemeral("You do not have permission to perform this action!")
		}
		if sub.Name == "reset" {
			return b.resetAwards(ctx, i)
		}
		return b.backupStore(ctx, i)
	default:
		return ephemeral("Unknown command!")
	}
}

func (b *Bot) handleComponent(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	action, arg, err := parseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		b.logger.Warn().Err(err).Msg("ignoring component")
		return ephemeral("Unknown action!")
	}
	metrics.ObserveInteraction("button", action)

	switch action {
	case actionList:
		return b.listTrophies(ctx, arg, true)
	case actionDetail:
		return b.trophyDetail(ctx, arg)
	case actionWinners:
		return b.trophyWinners(ctx, arg)
	default:
		return ephemeral("Unknown action!")
	}
}

// isAdmin accepts guild administrators and the configured admin ids.
func (b *Bot) isAdmin(i *discordgo.Interaction) bool {
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return b.cfg.IsAdmin(callerID(i))
}

func callerID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// failed logs storage failures and renders every error for the user.
func (b *Bot) failed(op string, err error) *discordgo.InteractionResponse {
	if !errors.Is(err, trophy.ErrValidation) && !errors.Is(err, trophy.ErrNotFound) && !errors.Is(err, trophy.ErrDuplicateAward) {
		b.logger.Error().Err(err).Str("op", op).Msg("trophy command failed")
	}
	return ephemeral(errorMessage(err))
}
