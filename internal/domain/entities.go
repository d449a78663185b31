package domain

import (
	"fmt"
	"time"
)

// ReactionDirection tells whether a reaction was added or removed.
type ReactionDirection string

const (
	DirectionAdd    ReactionDirection = "add"
	DirectionRemove ReactionDirection = "remove"
)

// ReactionEvent is a single observed signal of a user marking a reading done.
// Live gateway events and history re-scans both normalize into this shape.
type ReactionEvent struct {
	Community   string
	ChannelID   string
	ChannelName string
	MessageID   string
	UserID      string
	DisplayName string
	Direction   ReactionDirection
	ObservedAt  time.Time
}

// LedgerKey is the compound primary key of a ledger row. At most one row
// exists per key at any time.
type LedgerKey struct {
	DayNumber int
	UserID    string
	Community string
}

func (k LedgerKey) String() string {
	return fmt.Sprintf("%s|%d|%s", k.Community, k.DayNumber, k.UserID)
}

// LedgerRow is the persisted unit of completion. Everything outside the key
// is metadata and never participates in identity.
type LedgerRow struct {
	DayNumber            int
	UserID               string
	DisplayName          string
	Community            string
	ObservationDate      string
	ObservationTime      string
	ObservationTimeLabel string
	ChannelName          string
}

// Key returns the row's compound primary key.
func (r LedgerRow) Key() LedgerKey {
	return LedgerKey{DayNumber: r.DayNumber, UserID: r.UserID, Community: r.Community}
}

// Outcome reports what a reconciliation did with an event.
type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeDeleted          Outcome = "deleted"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeSkippedNotFound  Outcome = "skipped_not_found"
	// OutcomeDropped means the event never resolved to a day key and had no
	// ledger effect.
	OutcomeDropped Outcome = "dropped"
)

// ReactedUser is one non-bot user found on a message's checkmark reaction.
type ReactedUser struct {
	UserID      string
	DisplayName string
}

// SourceMessage is a trackable daily-reading message discovered by a history
// scan, together with every user who reacted to it.
type SourceMessage struct {
	Community    string
	ChannelID    string
	ChannelName  string
	MessageID    string
	Description  string
	CreatedAt    time.Time
	ReactedUsers []ReactedUser
}

// LeaderboardEntry is derived from the ledger, never persisted.
type LeaderboardEntry struct {
	UserID         string
	DisplayName    string
	Community      string
	CompletedDays  int
	TotalPlanDays  int
	CurrentPlanDay int
	CompletionRate float64
	DaysBehind     int
}

// SyncReport summarizes one bulk-sync pass. A pass is not atomic: Failed rows
// are retried naturally by the next run.
type SyncReport struct {
	Collected int
	Added     int
	Skipped   int
	Failed    int
}

// SyncJob asks the background worker to run a bulk sync.
type SyncJob struct {
	ID          string    `json:"id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
