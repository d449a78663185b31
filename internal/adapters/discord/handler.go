package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"bibleman-bot/internal/domain"
)

// Tracker is the reconciliation entry point gateway handlers feed into.
type Tracker interface {
	Track(ctx context.Context, ev domain.ReactionEvent, description string) (domain.Outcome, error)
}

// Handler wires gateway reaction events into the tracker. All failures are
// caught here: a bad event is logged with enough context to re-derive state
// by hand, and never crashes the session.
type Handler struct {
	source  *Source
	tracker Tracker
	log     zerolog.Logger
}

func NewHandler(source *Source, tracker Tracker, logger zerolog.Logger) *Handler {
	return &Handler{
		source:  source,
		tracker: tracker,
		log:     logger.With().Str("component", "discord_handler").Logger(),
	}
}

// Register attaches the reaction handlers to a live session.
func (h *Handler) Register(session *discordgo.Session) {
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		h.handle(r.MessageReaction, domain.DirectionAdd)
	})
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		h.handle(r.MessageReaction, domain.DirectionRemove)
	})
}

func (h *Handler) handle(r *discordgo.MessageReaction, dir domain.ReactionDirection) {
	ctx := context.Background()

	ev, description, ok, err := h.source.ObserveLive(ctx, r, dir)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", r.UserID).
			Str("message_id", r.MessageID).
			Str("direction", string(dir)).
			Msg("could not normalize reaction")
		return
	}
	if !ok {
		return
	}

	outcome, err := h.tracker.Track(ctx, ev, description)
	if err != nil {
		h.log.Error().Err(err).
			Str("user_id", ev.UserID).
			Str("community", ev.Community).
			Str("direction", string(dir)).
			Msg("reconcile failed")
		return
	}

	h.log.Info().
		Str("user_id", ev.UserID).
		Str("community", ev.Community).
		Str("outcome", string(outcome)).
		Msg("reaction reconciled")
}
