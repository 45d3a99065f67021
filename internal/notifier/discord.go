package notifier

import (
	"fmt"
	"strings"

	"github.com/amongthesloths/trophybot/internal/models"
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

type Notifier interface {
	NotifyAward(award models.Award) error
}

// MessageSender is the part of *discordgo.Session the notifier uses.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	sender    MessageSender
	channelID string
	logger    zerolog.Logger
}

func NewDiscordNotifier(sender MessageSender, channelID string, lg zerolog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		sender:    sender,
		channelID: channelID,
		logger:    lg.With().Str("component", "notifier").Logger(),
	}
}

func (n *DiscordNotifier) NotifyAward(award models.Award) error {
	if n.sender == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.sender.ChannelMessageSend(n.channelID, AwardMessage(award))
	if err != nil {
		n.logger.Error().Err(err).Str("channel_id", n.channelID).Msg("failed to send discord message")
		return err
	}
	return nil
}

// AwardMessage renders the channel announcement for a fresh award.
func AwardMessage(award models.Award) string {
	trophy := fmt.Sprintf("#%d", award.TrophyID)
	if award.Trophy != nil {
		trophy = strings.TrimSpace(award.Trophy.Emoji + " " + award.Trophy.Name)
	}

	var b strings.Builder
	b.WriteString("🏆 **Trophy Awarded**\n")
	fmt.Fprintf(&b, "**User:** <@%s>\n", award.UserID)
	fmt.Fprintf(&b, "**Trophy:** %s", trophy)
	if award.Trophy != nil && award.Trophy.Description != "" {
		fmt.Fprintf(&b, "\n**Description:** %s", award.Trophy.Description)
	}
	if award.AwardedBy != nil {
		fmt.Fprintf(&b, "\n**Awarded by:** <@%s>", *award.AwardedBy)
	}
	return b.String()
}
