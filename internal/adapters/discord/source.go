package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
	"bibleman-bot/internal/infra/metrics"
)

// scanLimit bounds how much history one channel scan replays.
const scanLimit = 100

// api is the slice of the Discord REST surface the adapter touches.
type api interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, options ...discordgo.RequestOption) ([]*discordgo.User, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Source normalizes Discord reactions into domain events. It serves both the
// live gateway path (ObserveLive) and bulk history scans (ScanHistory).
type Source struct {
	api   api
	botID string
	log   zerolog.Logger
}

func NewSource(api api, botID string, logger zerolog.Logger) *Source {
	return &Source{
		api:   api,
		botID: botID,
		log:   logger.With().Str("component", "discord_source").Logger(),
	}
}

// trackable reports whether a message is one of the bot's daily reading
// posts: authored by the bot and carrying the completion-instruction footer.
func (s *Source) trackable(msg *discordgo.Message) bool {
	if msg == nil || msg.Author == nil || msg.Author.ID != s.botID {
		return false
	}
	for _, embed := range msg.Embeds {
		if embed.Footer != nil && embed.Footer.Text == domain.CompletionFooter {
			return true
		}
	}
	return false
}

func embedDescription(msg *discordgo.Message) string {
	for _, embed := range msg.Embeds {
		if embed.Description != "" {
			return embed.Description
		}
	}
	return msg.Content
}

// ObserveLive turns a gateway reaction into a normalized event plus the
// message description the day key is extracted from. It returns ok=false for
// reactions that must not be tracked: the bot's own, the wrong emoji, or a
// message the bot did not author.
func (s *Source) ObserveLive(ctx context.Context, r *discordgo.MessageReaction, dir domain.ReactionDirection) (domain.ReactionEvent, string, bool, error) {
	if r.UserID == s.botID {
		return domain.ReactionEvent{}, "", false, nil
	}
	if r.Emoji.Name != domain.CheckmarkEmoji {
		return domain.ReactionEvent{}, "", false, nil
	}

	msg, err := s.fetchMessage(ctx, r.ChannelID, r.MessageID)
	if err != nil {
		return domain.ReactionEvent{}, "", false, fmt.Errorf("fetch message: %w", err)
	}
	if !s.trackable(msg) {
		return domain.ReactionEvent{}, "", false, nil
	}

	channelName, community, err := s.resolvePlace(ctx, r.ChannelID, r.GuildID)
	if err != nil {
		return domain.ReactionEvent{}, "", false, err
	}

	ev := domain.ReactionEvent{
		Community:   community,
		ChannelID:   r.ChannelID,
		ChannelName: channelName,
		MessageID:   r.MessageID,
		UserID:      r.UserID,
		DisplayName: s.displayName(ctx, r.GuildID, r.UserID),
		Direction:   dir,
		ObservedAt:  msg.Timestamp,
	}
	return ev, embedDescription(msg), true, nil
}

// ScanHistory replays recent channel history and returns every trackable
// daily message together with the non-bot users on its checkmark reaction.
func (s *Source) ScanHistory(ctx context.Context, channelID string) ([]domain.SourceMessage, error) {
	start := time.Now()
	msgs, err := s.api.ChannelMessages(channelID, scanLimit, "", "", "")
	metrics.ObserveNetworkRequest("discord", "channel_messages", channelID, start, err)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var out []domain.SourceMessage
	for _, msg := range msgs {
		if !s.trackable(msg) {
			continue
		}
		channelName, community, err := s.resolvePlace(ctx, channelID, msg.GuildID)
		if err != nil {
			return nil, err
		}
		users, err := s.reactedUsers(ctx, channelID, msg)
		if err != nil {
			s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("could not list reactions, skipping message")
			continue
		}
		out = append(out, domain.SourceMessage{
			Community:    community,
			ChannelID:    channelID,
			ChannelName:  channelName,
			MessageID:    msg.ID,
			Description:  embedDescription(msg),
			CreatedAt:    msg.Timestamp,
			ReactedUsers: users,
		})
	}
	return out, nil
}

func (s *Source) reactedUsers(ctx context.Context, channelID string, msg *discordgo.Message) ([]domain.ReactedUser, error) {
	start := time.Now()
	users, err := s.api.MessageReactions(channelID, msg.ID, domain.CheckmarkEmoji, scanLimit, "", "")
	metrics.ObserveNetworkRequest("discord", "message_reactions", channelID, start, err)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ReactedUser, 0, len(users))
	for _, u := range users {
		if u.ID == s.botID {
			continue
		}
		name := u.Username
		if nick := s.nickname(ctx, msg.GuildID, u.ID); nick != "" {
			name = nick
		}
		out = append(out, domain.ReactedUser{UserID: u.ID, DisplayName: name})
	}
	return out, nil
}

func (s *Source) fetchMessage(_ context.Context, channelID, messageID string) (*discordgo.Message, error) {
	start := time.Now()
	msg, err := s.api.ChannelMessage(channelID, messageID)
	metrics.ObserveNetworkRequest("discord", "channel_message", channelID, start, err)
	return msg, err
}

// resolvePlace maps raw IDs to the human-readable channel and community
// names the ledger stores.
func (s *Source) resolvePlace(_ context.Context, channelID, guildID string) (channelName, community string, err error) {
	start := time.Now()
	ch, err := s.api.Channel(channelID)
	metrics.ObserveNetworkRequest("discord", "channel", channelID, start, err)
	if err != nil {
		return "", "", fmt.Errorf("resolve channel: %w", err)
	}
	if guildID == "" {
		guildID = ch.GuildID
	}

	start = time.Now()
	guild, err := s.api.Guild(guildID)
	metrics.ObserveNetworkRequest("discord", "guild", guildID, start, err)
	if err != nil {
		return "", "", fmt.Errorf("resolve guild: %w", err)
	}
	return ch.Name, guild.Name, nil
}

// displayName prefers the guild nickname and falls back to the user ID when
// the member lookup fails. Tracking must not depend on the lookup.
func (s *Source) displayName(ctx context.Context, guildID, userID string) string {
	member := s.member(ctx, guildID, userID)
	if member == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil && member.User.Username != "" {
		return member.User.Username
	}
	return userID
}

// nickname returns the member's guild nickname or username, empty when the
// lookup fails.
func (s *Source) nickname(ctx context.Context, guildID, userID string) string {
	member := s.member(ctx, guildID, userID)
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		return member.User.Username
	}
	return ""
}

func (s *Source) member(_ context.Context, guildID, userID string) *discordgo.Member {
	start := time.Now()
	member, err := s.api.GuildMember(guildID, userID)
	metrics.ObserveNetworkRequest("discord", "guild_member", guildID, start, err)
	if err != nil {
		s.log.Debug().Err(err).Str("user_id", userID).Msg("member lookup failed")
		return nil
	}
	return member
}
