package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

const configCacheSize = 512

type GuildConfigRepository interface {
	// VouchChannel returns the configured vouch channel for a guild, or 0
	// when the guild has no row.
	VouchChannel(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error)
	SetVouchChannel(ctx context.Context, guildID, channelID snowflake.ID) error
}

type guildConfigRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

func NewGuildConfigRepository(db *bun.DB) GuildConfigRepository {
	// The vouch listener hits this on every guild message, so reads are
	// cached and invalidated on write.
	cache, _ := lru.New(configCacheSize)
	return &guildConfigRepository{db: db, cache: cache}
}

func (r *guildConfigRepository) VouchChannel(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	if cached, ok := r.cache.Get(guildID); ok {
		return cached.(snowflake.ID), nil
	}

	cfg := new(models.GuildConfig)
	err := r.db.NewSelect().Model(cfg).
		Where("gc.guild_id = ?", guildID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		r.cache.Add(guildID, snowflake.ID(0))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get guild config: %w", err)
	}

	r.cache.Add(guildID, cfg.VouchChannelID)
	return cfg.VouchChannelID, nil
}

func (r *guildConfigRepository) SetVouchChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	_, err := r.db.NewInsert().
		Model(&models.GuildConfig{GuildID: guildID, VouchChannelID: channelID}).
		On("CONFLICT (guild_id) DO UPDATE").
		Set("vouch_channel_id = EXCLUDED.vouch_channel_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set vouch channel: %w", err)
	}
	r.cache.Remove(guildID)
	return nil
}
