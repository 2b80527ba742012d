package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// WinCount is the per-guild running total of winner records for a user.
// Maintained incrementally; rows that reach zero are pruned.
type WinCount struct {
	bun.BaseModel `bun:"table:win_counts,alias:wc"`

	GuildID snowflake.ID `bun:"guild_id,pk"`
	UserID  snowflake.ID `bun:"user_id,pk"`
	Wins    int          `bun:"wins,notnull"`
}
