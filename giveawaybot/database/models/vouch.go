package models

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// Vouch is a user's attestation tied to a giveaway they won. Unique per
// (guild, user, giveaway); removed only by a moderator or by giveaway
// deletion.
type Vouch struct {
	bun.BaseModel `bun:"table:vouches,alias:v"`

	ID         int64        `bun:"id,pk,autoincrement"`
	GuildID    snowflake.ID `bun:"guild_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
	GiveawayID int64        `bun:"giveaway_id,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// VouchBlock marks a vouch as administratively forbidden. Deliberately not
// FK-referenced to giveaways: deletion must clean these up explicitly.
type VouchBlock struct {
	bun.BaseModel `bun:"table:vouch_blocks,alias:vb"`

	ID         int64        `bun:"id,pk,autoincrement"`
	GuildID    snowflake.ID `bun:"guild_id,notnull"`
	UserID     snowflake.ID `bun:"user_id,notnull"`
	GiveawayID int64        `bun:"giveaway_id,notnull"`
}
