package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

type GiveawayStatus string

const (
	GiveawayStatusRunning GiveawayStatus = "running"
	GiveawayStatusEnded   GiveawayStatus = "ended"
)

// Giveaway is a time- or command-bounded prize drawing. Status only ever
// moves running -> ended.
type Giveaway struct {
	bun.BaseModel `bun:"table:giveaways,alias:g"`

	ID               int64          `bun:"id,pk,autoincrement"`
	GuildID          snowflake.ID   `bun:"guild_id,notnull"`
	ChannelID        snowflake.ID   `bun:"channel_id"`
	MessageID        snowflake.ID   `bun:"message_id"`
	HostID           snowflake.ID   `bun:"host_id"`
	Prize            string         `bun:"prize,notnull"`
	WinnersRequested int            `bun:"winners_requested,notnull"`
	Deadline         time.Time      `bun:"deadline,notnull"`
	Status           GiveawayStatus `bun:"status,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (g *Giveaway) Running() bool {
	return g.Status == GiveawayStatusRunning
}

// Entrant is one user's membership in one giveaway, unique per pair.
type Entrant struct {
	bun.BaseModel `bun:"table:entrants,alias:e"`

	ID         int64        `bun:"id,pk,autoincrement"`
	GiveawayID int64        `bun:"giveaway_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
}

// Winner records that a user was selected as a winner of a giveaway. Rows
// are added and removed across rerolls; insertion order (id) is the
// tie-break order for removal.
type Winner struct {
	bun.BaseModel `bun:"table:winners,alias:w"`

	ID         int64        `bun:"id,pk,autoincrement"`
	GiveawayID int64        `bun:"giveaway_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
}

// WinnerHistory is the insert-only record of everyone who has ever been a
// winner of a giveaway, surviving reroll removals. It feeds the reroll
// exclusion pool and nothing else.
type WinnerHistory struct {
	bun.BaseModel `bun:"table:winner_history,alias:wh"`

	ID         int64        `bun:"id,pk,autoincrement"`
	GiveawayID int64        `bun:"giveaway_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
}
