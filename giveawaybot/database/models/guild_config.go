package models

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// GuildConfig holds per-guild settings. An absent row means the process-wide
// defaults apply.
type GuildConfig struct {
	bun.BaseModel `bun:"table:guild_config,alias:gc"`

	GuildID        snowflake.ID `bun:"guild_id,pk"`
	VouchChannelID snowflake.ID `bun:"vouch_channel_id"`
}
