package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/amongthesloths/trophybot/internal/database"
	"github.com/amongthesloths/trophybot/internal/pagination"
	"github.com/bwmarrin/discordgo"
)

func (b *Bot) createTrophy(ctx context.Context, i *discordgo.Interaction, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	t, err := b.svc.CreateTrophy(ctx, optString(opts, "name"), optString(opts, "description"), optString(opts, "emoji"), callerID(i))
	if err != nil {
		return b.failed("create", err)
	}
	b.logger.Info().Uint("trophy_id", t.ID).Str("by", callerID(i)).Msg("trophy created")
	return reply("Trophy created!", trophyEmbed(*t))
}

func (b *Bot) awardTrophy(ctx context.Context, i *discordgo.Interaction, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	userID := optString(opts, "user")
	trophyID, ok := optInt(opts, "trophy_id")
	if !ok || trophyID <= 0 {
		return ephemeral("Invalid input: trophy_id must be a positive number")
	}

	award, err := b.svc.AwardTrophy(ctx, userID, uint(trophyID), callerID(i))
	if err != nil {
		return b.failed("award", err)
	}

	if b.notifier != nil {
		if err := b.notifier.NotifyAward(*award); err != nil {
			b.logger.Warn().Err(err).Msg("award announcement failed")
		}
	}

	resp := reply(fmt.Sprintf("Trophy awarded to %s!", mention(userID)))
	if award.Trophy != nil {
		resp.Data.Embeds = []*discordgo.MessageEmbed{trophyEmbed(*award.Trophy)}
	}
	return resp
}

func (b *Bot) removeTrophy(ctx context.Context, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	userID := optString(opts, "user")
	trophyID, ok := optInt(opts, "trophy_id")
	if !ok || trophyID <= 0 {
		return ephemeral("Invalid input: trophy_id must be a positive number")
	}

	if err := b.svc.RemoveTrophy(ctx, userID, uint(trophyID)); err != nil {
		return b.failed("remove", err)
	}
	return reply(fmt.Sprintf("Trophy #%d removed from %s.", trophyID, mention(userID)))
}

// listTrophies renders one page of the catalogue. Button presses edit the
// message in place; the slash command posts a new one.
func (b *Bot) listTrophies(ctx context.Context, page int, update bool) *discordgo.InteractionResponse {
	n, err := b.svc.CountTrophies(ctx)
	if err != nil {
		return b.failed("list", err)
	}
	if n == 0 {
		return reply("There are no trophies yet!")
	}

	trophies, err := b.svc.ListAllTrophies(ctx)
	if err != nil {
		return b.failed("list", err)
	}

	_, totalPages := pagination.Paginate(trophies, 1, pagination.DefaultPageSize)
	page = max(1, min(page, totalPages))
	p := pagination.New(trophies, page, pagination.DefaultPageSize)

	resp := withComponents(reply("", listEmbed(p)), listButtons(p))
	if update {
		resp.Type = discordgo.InteractionResponseUpdateMessage
	}
	return resp
}

func (b *Bot) showTrophy(ctx context.Context, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	trophyID, ok := optInt(opts, "trophy_id")
	if !ok || trophyID <= 0 {
		return ephemeral("Invalid input: trophy_id must be a positive number")
	}
	return b.trophyDetailWithHolders(ctx, int(trophyID))
}

func (b *Bot) trophyDetailWithHolders(ctx context.Context, id int) *discordgo.InteractionResponse {
	t, err := b.svc.GetTrophyByID(ctx, uint(id))
	if err != nil {
		return b.failed("show", err)
	}
	holders, err := b.svc.GetUsersWithTrophy(ctx, t.ID)
	if err != nil {
		return b.failed("show", err)
	}
	return withComponents(reply("", trophyDetailEmbed(*t, holders)), detailButtons(t.ID))
}

func (b *Bot) trophyDetail(ctx context.Context, id int) *discordgo.InteractionResponse {
	if id <= 0 {
		return ephemeral("Unknown action!")
	}
	t, err := b.svc.GetTrophyByID(ctx, uint(id))
	if err != nil {
		return b.failed("detail", err)
	}
	return withComponents(reply("", trophyEmbed(*t)), detailButtons(t.ID))
}

func (b *Bot) trophyWinners(ctx context.Context, id int) *discordgo.InteractionResponse {
	if id <= 0 {
		return ephemeral("Unknown action!")
	}
	t, err := b.svc.GetTrophyByID(ctx, uint(id))
	if err != nil {
		return b.failed("winners", err)
	}
	holders, err := b.svc.GetUsersWithTrophy(ctx, t.ID)
	if err != nil {
		return b.failed("winners", err)
	}
	return withComponents(reply("", winnersEmbed(*t, holders)), winnersButtons(t.ID))
}

func (b *Bot) showProfile(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionResponse {
	userID := optString(opts, "user")
	var user *discordgo.User
	if userID == "" {
		userID = callerID(i)
		if i.Member != nil && i.Member.User != nil {
			user = i.Member.User
		} else {
			user = i.User
		}
	} else if data.Resolved != nil {
		user = data.Resolved.Users[userID]
	}

	awards, err := b.svc.GetUserTrophies(ctx, userID)
	if err != nil {
		return b.failed("profile", err)
	}
	return reply("", profileEmbed(user, userID, awards))
}

func (b *Bot) showLeaderboard(ctx context.Context) *discordgo.InteractionResponse {
	entries, err := b.svc.GetLeaderboard(ctx, b.cfg.LeaderboardSize)
	if err != nil {
		return b.failed("leaderboard", err)
	}
	return reply("", leaderboardEmbed(entries))
}

func (b *Bot) resetAwards(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	n, err := b.svc.ResetAwards(ctx)
	if err != nil {
		return b.failed("reset", err)
	}
	b.logger.Warn().Int64("awards", n).Str("by", callerID(i)).Msg("awards reset")
	return reply(fmt.Sprintf("Trophies have been reset, %d awards removed.", n))
}

func (b *Bot) backupStore(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	if b.backup == nil {
		return ephemeral("Backups are not configured.")
	}
	path, err := b.backup(ctx)
	if errors.Is(err, database.ErrBackupUnsupported) {
		return ephemeral("Backups are handled by the database server for this deployment.")
	}
	if err != nil {
		b.logger.Error().Err(err).Msg("backup failed")
		return ephemeral("Backup failed, check the bot logs.")
	}
	b.logger.Info().Str("path", path).Str("by", callerID(i)).Msg("database backed up")
	return ephemeral(fmt.Sprintf("Database backed up to `%s`.", path))
}
