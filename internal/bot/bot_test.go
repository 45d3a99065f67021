package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/amongthesloths/trophybot/internal/config"
	"github.com/amongthesloths/trophybot/internal/database"
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	awards []models.Award
}

func (n *recordingNotifier) NotifyAward(award models.Award) error {
	n.awards = append(n.awards, award)
	return nil
}

var (
	admin  = &discordgo.Member{User: &discordgo.User{ID: "1001", Username: "alice"}, Permissions: discordgo.PermissionAdministrator}
	member = &discordgo.Member{User: &discordgo.User{ID: "2002", Username: "bob"}}
)

func newTestBot(t *testing.T, opts ...Option) (*Bot, *trophy.Service) {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver:  config.DriverSQLite,
		DatabasePath:    ":memory:",
		AdminUserIDs:    []string{"3003"},
		LeaderboardSize: 10,
	}
	db, err := database.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	svc := trophy.NewService(db)
	return New(nil, svc, cfg, zerolog.Nop(), opts...), svc
}

func str(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func user(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func trophyID(id uint) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "trophy_id", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(id)}
}

func command(m *discordgo.Member, name, sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Member: m,
		Data: discordgo.ApplicationCommandInteractionData{
			Name: name,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: sub, Options: opts},
			},
		},
	}
}

func button(id string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: member,
		Data:   discordgo.MessageComponentInteractionData{CustomID: id},
	}
}

func isEphemeral(resp *discordgo.InteractionResponse) bool {
	return resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0
}

func seedTrophies(t *testing.T, svc *trophy.Service, n int) []*models.Trophy {
	t.Helper()
	out := make([]*models.Trophy, 0, n)
	for i := 1; i <= n; i++ {
		tr, err := svc.CreateTrophy(context.Background(), fmt.Sprintf("T%02d", i), "", "", "1001")
		require.NoError(t, err)
		out = append(out, tr)
	}
	return out
}

func TestCreateCommand(t *testing.T) {
	b, svc := newTestBot(t)
	ctx := context.Background()

	t.Run("Admin", func(t *testing.T) {
		resp := b.Handle(ctx, command(admin, "trophy", "create", str("name", "Gold"), str("emoji", "🥇")))
		require.NotNil(t, resp)
		assert.Equal(t, "Trophy created!", resp.Data.Content)
		require.Len(t, resp.Data.Embeds, 1)
		assert.Equal(t, "🥇 Gold", resp.Data.Embeds[0].Title)

		n, err := svc.CountTrophies(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("ConfiguredAdminWithoutGuildPermission", func(t *testing.T) {
		m := &discordgo.Member{User: &discordgo.User{ID: "3003"}}
		resp := b.Handle(ctx, command(m, "trophy", "create", str("name", "Silver")))
		assert.Equal(t, "Trophy created!", resp.Data.Content)
	})

	t.Run("Denied", func(t *testing.T) {
		resp := b.Handle(ctx, command(member, "trophy", "create", str("name", "Bronze")))
		assert.True(t, isEphemeral(resp))
		assert.Contains(t, resp.Data.Content, "permission")
	})

	t.Run("DescriptionTooLong", func(t *testing.T) {
		long := strings.Repeat("x", models.MaxDescriptionLength+1)
		resp := b.Handle(ctx, command(admin, "trophy", "create", str("name", "Verbose"), str("description", long)))
		assert.True(t, isEphemeral(resp))
		assert.Contains(t, resp.Data.Content, "Invalid input")
	})

	t.Run("EmptyName", func(t *testing.T) {
		resp := b.Handle(ctx, command(admin, "trophy", "create", str("name", " ")))
		assert.True(t, isEphemeral(resp))
		assert.Contains(t, resp.Data.Content, "Invalid input")
	})
}

func TestAwardCommand(t *testing.T) {
	n := &recordingNotifier{}
	b, svc := newTestBot(t, WithNotifier(n))
	ctx := context.Background()
	gold := seedTrophies(t, svc, 1)[0]

	resp := b.Handle(ctx, command(admin, "trophy", "award", user("42"), trophyID(gold.ID)))
	assert.Equal(t, "Trophy awarded to <@42>!", resp.Data.Content)
	require.Len(t, n.awards, 1)
	require.NotNil(t, n.awards[0].AwardedBy)
	assert.Equal(t, "1001", *n.awards[0].AwardedBy)

	t.Run("Duplicate", func(t *testing.T) {
		resp := b.Handle(ctx, command(admin, "trophy", "award", user("42"), trophyID(gold.ID)))
		assert.True(t, isEphemeral(resp))
		assert.Equal(t, "That user already has this trophy.", resp.Data.Content)
		assert.Len(t, n.awards, 1)
	})

	t.Run("UnknownTrophy", func(t *testing.T) {
		resp := b.Handle(ctx, command(admin, "trophy", "award", user("42"), trophyID(99)))
		assert.Equal(t, "Not found: trophy 99 does not exist", resp.Data.Content)
	})

	t.Run("Remove", func(t *testing.T) {
		resp := b.Handle(ctx, command(admin, "trophy", "remove", user("42"), trophyID(gold.ID)))
		assert.False(t, isEphemeral(resp))

		resp = b.Handle(ctx, command(admin, "trophy", "remove", user("42"), trophyID(gold.ID)))
		assert.True(t, isEphemeral(resp))
		assert.Contains(t, resp.Data.Content, "Not found")
	})

	t.Run("RemoveDenied", func(t *testing.T) {
		resp := b.Handle(ctx, command(member, "trophy", "remove", user("42"), trophyID(gold.ID)))
		assert.Contains(t, resp.Data.Content, "permission")
	})
}

func TestListCommandAndPaging(t *testing.T) {
	b, svc := newTestBot(t)
	ctx := context.Background()

	empty := b.Handle(ctx, command(member, "trophy", "list"))
	assert.Equal(t, "There are no trophies yet!", empty.Data.Content)

	seedTrophies(t, svc, 25)

	first := b.Handle(ctx, command(member, "trophy", "list"))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, first.Type)
	require.Len(t, first.Data.Embeds, 1)
	assert.Equal(t, "Available trophies (page 1/3)", first.Data.Embeds[0].Title)
	assert.Len(t, first.Data.Embeds[0].Fields, 10)

	third := b.Handle(ctx, button("trophy_list:3"))
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, third.Type)
	assert.Equal(t, "Available trophies (page 3/3)", third.Data.Embeds[0].Title)
	assert.Len(t, third.Data.Embeds[0].Fields, 5)

	clamped := b.Handle(ctx, button("trophy_list:9"))
	assert.Equal(t, "Available trophies (page 3/3)", clamped.Data.Embeds[0].Title)
}

func TestShowAndButtons(t *testing.T) {
	b, svc := newTestBot(t)
	ctx := context.Background()
	gold := seedTrophies(t, svc, 1)[0]
	_, err := svc.AwardTrophy(ctx, "42", gold.ID, "1001")
	require.NoError(t, err)

	show := b.Handle(ctx, command(member, "trophy", "show", trophyID(gold.ID)))
	require.Len(t, show.Data.Embeds, 1)
	fields := show.Data.Embeds[0].Fields
	require.NotEmpty(t, fields)
	assert.Equal(t, "Winners", fields[len(fields)-1].Name)
	assert.Equal(t, "<@42>", fields[len(fields)-1].Value)

	winners := b.Handle(ctx, button(fmt.Sprintf("trophy_winners:%d", gold.ID)))
	assert.Contains(t, winners.Data.Embeds[0].Description, "<@42>")

	detail := b.Handle(ctx, button(fmt.Sprintf("trophy_detail:%d", gold.ID)))
	assert.Equal(t, "T01", detail.Data.Embeds[0].Title)

	missing := b.Handle(ctx, button("trophy_detail:77"))
	assert.True(t, isEphemeral(missing))

	bogus := b.Handle(ctx, button("trophy_detail"))
	assert.Equal(t, "Unknown action!", bogus.Data.Content)
}

func TestProfileAndLeaderboard(t *testing.T) {
	b, svc := newTestBot(t)
	ctx := context.Background()
	trophies := seedTrophies(t, svc, 2)
	for _, tr := range trophies {
		_, err := svc.AwardTrophy(ctx, "2002", tr.ID, "1001")
		require.NoError(t, err)
	}
	_, err := svc.AwardTrophy(ctx, "42", trophies[0].ID, "1001")
	require.NoError(t, err)

	self := b.Handle(ctx, command(member, "trophy", "profile"))
	assert.Equal(t, "Trophy profile of bob", self.Data.Embeds[0].Title)
	assert.Len(t, self.Data.Embeds[0].Fields, 2)

	other := b.Handle(ctx, command(member, "trophy", "profile", user("77")))
	assert.Equal(t, "Trophy profile of <@77>", other.Data.Embeds[0].Title)
	assert.Equal(t, "This player has not received any trophies yet.", other.Data.Embeds[0].Description)

	board := b.Handle(ctx, command(member, "trophy", "leaderboard"))
	assert.Equal(t, "1. <@2002> - 2 trophies\n2. <@42> - 1 trophy", board.Data.Embeds[0].Description)
}

func TestAdminCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset", func(t *testing.T) {
		b, svc := newTestBot(t)
		gold := seedTrophies(t, svc, 1)[0]
		_, err := svc.AwardTrophy(ctx, "42", gold.ID, "")
		require.NoError(t, err)

		denied := b.Handle(ctx, command(member, "admin", "reset"))
		assert.Contains(t, denied.Data.Content, "permission")

		resp := b.Handle(ctx, command(admin, "admin", "reset"))
		assert.Equal(t, "Trophies have been reset, 1 awards removed.", resp.Data.Content)

		board, err := svc.GetLeaderboard(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("Backup", func(t *testing.T) {
		b, _ := newTestBot(t, WithBackup(func(context.Context) (string, error) { return "/backups/trophies.db", nil }))
		resp := b.Handle(ctx, command(admin, "admin", "backup"))
		assert.Equal(t, "Database backed up to `/backups/trophies.db`.", resp.Data.Content)
	})

	t.Run("BackupUnsupported", func(t *testing.T) {
		b, _ := newTestBot(t, WithBackup(func(context.Context) (string, error) { return "", database.ErrBackupUnsupported }))
		resp := b.Handle(ctx, command(admin, "admin", "backup"))
		assert.Contains(t, resp.Data.Content, "database server")
	})

	t.Run("BackupFailure", func(t *testing.T) {
		b, _ := newTestBot(t, WithBackup(func(context.Context) (string, error) { return "", errors.New("disk full") }))
		resp := b.Handle(ctx, command(admin, "admin", "backup"))
		assert.Equal(t, "Backup failed, check the bot logs.", resp.Data.Content)
	})
}

func TestHandle_IgnoresOtherInteractions(t *testing.T) {
	b, _ := newTestBot(t)
	assert.Nil(t, b.Handle(context.Background(), &discordgo.Interaction{Type: discordgo.InteractionPing}))
}

func TestStorageFailure_LoggedAndHidden(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: config.DriverSQLite, DatabasePath: ":memory:", LeaderboardSize: 10}
	db, err := database.Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Close(db))

	var logs strings.Builder
	b := New(nil, trophy.NewService(db), cfg, zerolog.New(&logs))

	resp := b.Handle(context.Background(), command(member, "trophy", "list"))
	assert.True(t, isEphemeral(resp))
	assert.Equal(t, "The trophy database is unavailable right now, please try again later.", resp.Data.Content)
	assert.Contains(t, logs.String(), `"op":"list"`)

	logs.Reset()
	resp = b.Handle(context.Background(), command(admin, "trophy", "create", str("name", " ")))
	assert.Contains(t, resp.Data.Content, "Invalid input")
	assert.Empty(t, logs.String())
}
