package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
)

const botID = "BOT"

type fakeAPI struct {
	messages  map[string]*discordgo.Message
	history   map[string][]*discordgo.Message
	reactions map[string][]*discordgo.User
}

func (f *fakeAPI) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.messages[messageID], nil
}

func (f *fakeAPI) ChannelMessages(channelID string, _ int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return f.history[channelID], nil
}

func (f *fakeAPI) MessageReactions(_, messageID, _ string, _ int, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.User, error) {
	return f.reactions[messageID], nil
}

func (f *fakeAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: channelID, Name: "general", GuildID: "GUILD"}, nil
}

func (f *fakeAPI) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Bible Readers"}, nil
}

func (f *fakeAPI) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	return &discordgo.Member{Nick: "nick-" + userID}, nil
}

func dailyMessage(id, day string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		Author:    &discordgo.User{ID: botID},
		Timestamp: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		Embeds: []*discordgo.MessageEmbed{{
			Description: "📖 **Day " + day + "**",
			Footer:      &discordgo.MessageEmbedFooter{Text: domain.CompletionFooter},
		}},
	}
}

func reaction(userID, messageID, emoji string) *discordgo.MessageReaction {
	return &discordgo.MessageReaction{
		UserID:    userID,
		MessageID: messageID,
		ChannelID: "CH1",
		GuildID:   "GUILD",
		Emoji:     discordgo.Emoji{Name: emoji},
	}
}

func TestObserveLiveNormalizesReaction(t *testing.T) {
	api := &fakeAPI{messages: map[string]*discordgo.Message{"M1": dailyMessage("M1", "12")}}
	src := NewSource(api, botID, zerolog.Nop())

	ev, description, ok, err := src.ObserveLive(context.Background(), reaction("U1", "M1", domain.CheckmarkEmoji), domain.DirectionAdd)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !ok {
		t.Fatal("reaction should be tracked")
	}
	if ev.Community != "Bible Readers" || ev.ChannelName != "general" {
		t.Fatalf("place = %q/%q", ev.Community, ev.ChannelName)
	}
	if ev.DisplayName != "nick-U1" {
		t.Fatalf("display name = %q", ev.DisplayName)
	}
	if day, found := domain.ExtractDayKey(description); !found || day != 12 {
		t.Fatalf("day from description = %d/%v", day, found)
	}
}

func TestObserveLiveSkipsOwnReaction(t *testing.T) {
	api := &fakeAPI{messages: map[string]*discordgo.Message{"M1": dailyMessage("M1", "12")}}
	src := NewSource(api, botID, zerolog.Nop())

	_, _, ok, err := src.ObserveLive(context.Background(), reaction(botID, "M1", domain.CheckmarkEmoji), domain.DirectionAdd)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want skip", ok, err)
	}
}

func TestObserveLiveSkipsWrongEmoji(t *testing.T) {
	api := &fakeAPI{messages: map[string]*discordgo.Message{"M1": dailyMessage("M1", "12")}}
	src := NewSource(api, botID, zerolog.Nop())

	_, _, ok, err := src.ObserveLive(context.Background(), reaction("U1", "M1", "🔥"), domain.DirectionAdd)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want skip", ok, err)
	}
}

func TestObserveLiveSkipsForeignMessage(t *testing.T) {
	foreign := &discordgo.Message{
		ID:     "M2",
		Author: &discordgo.User{ID: "SOMEONE"},
		Embeds: []*discordgo.MessageEmbed{{
			Description: "**Day 9**",
			Footer:      &discordgo.MessageEmbedFooter{Text: domain.CompletionFooter},
		}},
	}
	api := &fakeAPI{messages: map[string]*discordgo.Message{"M2": foreign}}
	src := NewSource(api, botID, zerolog.Nop())

	_, _, ok, err := src.ObserveLive(context.Background(), reaction("U1", "M2", domain.CheckmarkEmoji), domain.DirectionAdd)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want skip", ok, err)
	}
}

func TestScanHistoryCollectsTrackableMessages(t *testing.T) {
	chatter := &discordgo.Message{ID: "M9", Author: &discordgo.User{ID: "U5"}, Content: "good morning"}
	api := &fakeAPI{
		history: map[string][]*discordgo.Message{
			"CH1": {dailyMessage("M1", "3"), chatter, dailyMessage("M2", "4")},
		},
		reactions: map[string][]*discordgo.User{
			"M1": {{ID: botID, Username: "bot"}, {ID: "U1", Username: "alice"}},
			"M2": {{ID: "U2", Username: "bob"}},
		},
	}
	src := NewSource(api, botID, zerolog.Nop())

	msgs, err := src.ScanHistory(context.Background(), "CH1")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	// The bot's own seeded reaction never counts toward progress.
	if len(msgs[0].ReactedUsers) != 1 || msgs[0].ReactedUsers[0].UserID != "U1" {
		t.Fatalf("reacted users = %+v", msgs[0].ReactedUsers)
	}
	if day, ok := domain.ExtractDayKey(msgs[1].Description); !ok || day != 4 {
		t.Fatalf("second message day = %d/%v", day, ok)
	}
}
