package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/amongthesloths/trophybot/internal/pagination"
	"github.com/amongthesloths/trophybot/internal/trophy"
	"github.com/bwmarrin/discordgo"
)

const (
	embedColor = 0xF1C40F

	// Discord rejects embeds over these limits.
	fieldValueLimit = 1024
	maxEmbedFields  = 25
	descLimit       = 4096

	actionList    = "trophy_list"
	actionDetail  = "trophy_detail"
	actionWinners = "trophy_winners"
)

var errBadCustomID = errors.New("malformed component id")

func customID(action string, arg int) string {
	return action + ":" + strconv.Itoa(arg)
}

// parseCustomID splits a button id of the form "<action>:<number>".
func parseCustomID(id string) (string, int, error) {
	action, raw, ok := strings.Cut(id, ":")
	if !ok || action == "" {
		return "", 0, errBadCustomID
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", errBadCustomID, id)
	}
	return action, n, nil
}

func trophyTitle(t models.Trophy) string {
	return strings.TrimSpace(t.Emoji + " " + t.Name)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "No description"
	}
	return truncate(s, fieldValueLimit)
}

// truncate cuts s to at most limit bytes on a rune boundary, marking the cut
// with an ellipsis.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	const ellipsis = "…"
	cut := limit - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}

func trophyEmbed(t models.Trophy) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       trophyTitle(t),
		Description: truncate(t.Description, descLimit),
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Trophy #%d", t.ID)},
		Timestamp:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.CreatedBy != "" {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   "Created by",
			Value:  mention(t.CreatedBy),
			Inline: true,
		})
	}
	return e
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// mentionList renders one mention per line, cut short so the result fits in
// an embed field.
func mentionList(awards []models.Award, limit int) string {
	var b strings.Builder
	for i, a := range awards {
		line := mention(a.UserID) + "\n"
		more := fmt.Sprintf("…and %d more", len(awards)-i)
		if b.Len()+len(line)+len(more) > limit {
			b.WriteString(more)
			break
		}
		b.WriteString(line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func trophyDetailEmbed(t models.Trophy, holders []models.Award) *discordgo.MessageEmbed {
	e := trophyEmbed(t)
	if len(holders) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "Winners",
			Value: mentionList(holders, fieldValueLimit),
		})
	}
	return e
}

func detailButtons(trophyID uint) []discordgo.MessageComponent {
	id := int(trophyID)
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Details", Style: discordgo.PrimaryButton, CustomID: customID(actionDetail, id)},
			discordgo.Button{Label: "Show winners", Style: discordgo.SecondaryButton, CustomID: customID(actionWinners, id)},
		}},
	}
}

func winnersEmbed(t models.Trophy, holders []models.Award) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     "Winners of " + trophyTitle(t),
		Color:     embedColor,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(holders) == 0 {
		e.Description = "Nobody has received this trophy yet."
		return e
	}
	intro := "These players have received this trophy:\n\n"
	e.Description = intro + mentionList(holders, descLimit-len(intro))
	return e
}

func winnersButtons(trophyID uint) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Back to details", Style: discordgo.PrimaryButton, CustomID: customID(actionDetail, int(trophyID))},
		}},
	}
}

func listEmbed(page pagination.Page[models.Trophy]) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Available trophies (page %d/%d)", page.Page, page.TotalPages),
		Color:     embedColor,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for _, t := range page.Items {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d %s", t.ID, trophyTitle(t)),
			Value: orNone(t.Description),
		})
	}
	return e
}

// listButtons renders back/forward navigation. Back is disabled on the first
// page and forward on the last.
func listButtons(page pagination.Page[models.Trophy]) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "◀️ Back",
				Style:    discordgo.PrimaryButton,
				CustomID: customID(actionList, page.Page-1),
				Disabled: !page.HasPrev(),
			},
			discordgo.Button{
				Label:    "Next ▶️",
				Style:    discordgo.PrimaryButton,
				CustomID: customID(actionList, page.Page+1),
				Disabled: !page.HasNext(),
			},
		}},
	}
}

func profileEmbed(user *discordgo.User, userID string, awards []models.Award) *discordgo.MessageEmbed {
	name := mention(userID)
	e := &discordgo.MessageEmbed{
		Color:     embedColor,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if user != nil {
		name = user.Username
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")}
	}
	e.Title = "Trophy profile of " + name

	if len(awards) == 0 {
		e.Description = "This player has not received any trophies yet."
		return e
	}
	e.Description = "Here are this player's trophies:"
	shown := 0
	for _, a := range awards {
		if a.Trophy == nil {
			continue
		}
		if shown == maxEmbedFields {
			break
		}
		shown++
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  trophyTitle(*a.Trophy),
			Value: orNone(a.Trophy.Description),
		})
	}
	if rest := len(awards) - shown; rest > 0 {
		e.Description += fmt.Sprintf("\n…and %d more", rest)
	}
	return e
}

func leaderboardEmbed(entries []trophy.LeaderboardEntry) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:     "Trophy Leaderboard",
		Color:     embedColor,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if len(entries) == 0 {
		e.Description = "No trophies have been awarded yet."
		return e
	}
	var b strings.Builder
	for _, entry := range entries {
		noun := "trophies"
		if entry.Count == 1 {
			noun = "trophy"
		}
		fmt.Fprintf(&b, "%d. %s - %d %s\n", entry.Rank, mention(entry.UserID), entry.Count, noun)
	}
	e.Description = strings.TrimSuffix(b.String(), "\n")
	return e
}

// errorMessage turns a service error into something a Discord user can act on.
func errorMessage(err error) string {
	var te *trophy.Error
	msg := ""
	if errors.As(err, &te) {
		msg = te.Message
	}

	switch {
	case errors.Is(err, trophy.ErrValidation):
		return "Invalid input: " + msg
	case errors.Is(err, trophy.ErrNotFound):
		return "Not found: " + msg
	case errors.Is(err, trophy.ErrDuplicateAward):
		return "That user already has this trophy."
	default:
		return "The trophy database is unavailable right now, please try again later."
	}
}

func reply(content string, embeds ...*discordgo.MessageEmbed) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Embeds: embeds},
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	}
}

func withComponents(resp *discordgo.InteractionResponse, components []discordgo.MessageComponent) *discordgo.InteractionResponse {
	resp.Data.Components = components
	return resp
}
