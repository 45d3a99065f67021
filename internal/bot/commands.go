package bot

import (
	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/bwmarrin/discordgo"
)

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	minTrophyID           = 1.0
)

func userOption(required bool, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: description,
		Required:    required,
	}
}

func trophyIDOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "trophy_id",
		Description: description,
		Required:    true,
		MinValue:    &minTrophyID,
	}
}

// Commands returns the slash commands the bot registers on start.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "trophy",
			Description: "Create, award and browse trophies",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "create",
					Description: "Create a new trophy",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "Name of the trophy",
							Required:    true,
							MaxLength:   100,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "description",
							Description: "What the trophy is for",
							MaxLength:   models.MaxDescriptionLength,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "emoji",
							Description: "Emoji shown next to the name",
							MaxLength:   64,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "award",
					Description: "Award a trophy to a user",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true, "Who receives the trophy"),
						trophyIDOption("Trophy to award"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Take a trophy away from a user",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(true, "Who loses the trophy"),
						trophyIDOption("Trophy to remove"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List all trophies",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show a trophy and its winners",
					Options: []*discordgo.ApplicationCommandOption{
						trophyIDOption("Trophy to show"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "profile",
					Description: "Show the trophies of a user",
					Options: []*discordgo.ApplicationCommandOption{
						userOption(false, "Defaults to you"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Users with the most trophies",
				},
			},
		},
		{
			Name:                     "admin",
			Description:              "Trophy administration",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Remove every award",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "backup",
					Description: "Write a copy of the trophy database",
				},
			},
		},
	}
}

// options indexes the options of a subcommand by name.
func options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

func optString(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := opts[name]
	if !ok {
		return ""
	}
	s, _ := o.Value.(string)
	return s
}

// optInt reads an integer option. Values decoded from the gateway arrive as
// float64.
func optInt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	o, ok := opts[name]
	if !ok {
		return 0, false
	}
	switch v := o.Value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
