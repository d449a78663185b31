package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
)

const embedColor = 0x5865F2

// sender is the slice of the Discord REST surface the poster uses.
type sender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
}

// Poster publishes the bot's own messages: the daily reading and the weekly
// leaderboard.
type Poster struct {
	api sender
	log zerolog.Logger
}

func NewPoster(api sender, logger zerolog.Logger) *Poster {
	return &Poster{
		api: api,
		log: logger.With().Str("component", "discord_poster").Logger(),
	}
}

// PostDailyReading publishes the day-N embed and seeds the checkmark
// reaction so users can tap instead of searching for the emoji. The day
// marker in the description is what reaction tracking later keys on.
func (p *Poster) PostDailyReading(ctx context.Context, channelID string, day int, passage, encouragement string) error {
	description := fmt.Sprintf("📖 **Day %d**", day)
	if passage != "" {
		description += "\n\nToday's reading: " + passage
	}
	if encouragement != "" {
		description += "\n\n" + encouragement
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Daily Bible Reading",
		Description: description,
		Color:       embedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: domain.CompletionFooter},
	}

	start := time.Now()
	msg, err := p.api.ChannelMessageSendEmbed(channelID, embed)
	metrics.ObserveNetworkRequest("discord", "send_embed", channelID, start, err)
	if err != nil {
		metrics.DiscordSendErrors.Inc()
		return fmt.Errorf("send daily embed: %w", err)
	}

	start = time.Now()
	err = p.api.MessageReactionAdd(channelID, msg.ID, domain.CheckmarkEmoji)
	metrics.ObserveNetworkRequest("discord", "seed_reaction", channelID, start, err)
	if err != nil {
		// The post stands even if seeding fails; users can still react.
		p.log.Warn().Err(err).Str("message_id", msg.ID).Msg("could not seed checkmark")
	}
	return nil
}

// PostLeaderboard renders the standings as a single embed.
func (p *Poster) PostLeaderboard(ctx context.Context, channelID string, entries []domain.LeaderboardEntry) error {
	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString("No completions recorded yet. React with ✅ to get on the board!")
	}
	for i, e := range entries {
		medal := fmt.Sprintf("%d.", i+1)
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s **%s** — %d/%d days (%.0f%%)", medal, e.DisplayName, e.CompletedDays, e.TotalPlanDays, e.CompletionRate)
		if e.DaysBehind > 0 {
			fmt.Fprintf(&b, ", %d behind", e.DaysBehind)
		}
		b.WriteString("\n")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Reading Leaderboard",
		Description: b.String(),
		Color:       embedColor,
	}

	start := time.Now()
	_, err := p.api.ChannelMessageSendEmbed(channelID, embed)
	metrics.ObserveNetworkRequest("discord", "send_embed", channelID, start, err)
	if err != nil {
		metrics.DiscordSendErrors.Inc()
		return fmt.Errorf("send leaderboard embed: %w", err)
	}
	return nil
}
