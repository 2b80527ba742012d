package repositories

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

// VouchedGiveaway is one giveaway a user has vouched for.
type VouchedGiveaway struct {
	GiveawayID int64  `bun:"giveaway_id"`
	Prize      string `bun:"prize"`
}

type VouchRepository interface {
	Add(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error)
	Remove(ctx context.Context, db bun.IDB, guildID, userID snowflake.ID, giveawayID int64) (bool, error)
	CountForUser(ctx context.Context, guildID, userID snowflake.ID) (int, error)
	ListForUser(ctx context.Context, guildID, userID snowflake.ID) ([]VouchedGiveaway, error)
	Has(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error)

	AddBlock(ctx context.Context, db bun.IDB, guildID, userID snowflake.ID, giveawayID int64) error
	IsBlocked(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error)

	// DeleteForGiveaway clears vouches and vouch blocks when a giveaway is
	// deleted. Blocks have no FK to giveaways, so cascade never covers them.
	DeleteForGiveaway(ctx context.Context, db bun.IDB, giveawayID int64) error

	// Outstanding lists ended giveaways the user won but has not vouched
	// for yet.
	Outstanding(ctx context.Context, guildID, userID snowflake.ID) ([]WonGiveaway, error)
}

type vouchRepository struct {
	db *bun.DB
}

func NewVouchRepository(db *bun.DB) VouchRepository {
	return &vouchRepository{db: db}
}

func (r *vouchRepository) Add(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.Vouch{GuildID: guildID, UserID: userID, GiveawayID: giveawayID}).
		On("CONFLICT (guild_id, user_id, giveaway_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to add vouch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *vouchRepository) Remove(ctx context.Context, db bun.IDB, guildID, userID snowflake.ID, giveawayID int64) (bool, error) {
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().Model((*models.Vouch)(nil)).
		Where("guild_id = ? AND user_id = ? AND giveaway_id = ?", guildID, userID, giveawayID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to remove vouch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *vouchRepository) CountForUser(ctx context.Context, guildID, userID snowflake.ID) (int, error) {
	count, err := r.db.NewSelect().Model((*models.Vouch)(nil)).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count vouches: %w", err)
	}
	return count, nil
}

func (r *vouchRepository) ListForUser(ctx context.Context, guildID, userID snowflake.ID) ([]VouchedGiveaway, error) {
	var vouched []VouchedGiveaway
	err := r.db.NewSelect().
		ColumnExpr("g.id AS giveaway_id").
		ColumnExpr("g.prize AS prize").
		Model((*models.Vouch)(nil)).
		Join("JOIN giveaways AS g ON g.id = v.giveaway_id").
		Where("v.guild_id = ?", guildID).
		Where("v.user_id = ?", userID).
		OrderExpr("g.id DESC").
		Scan(ctx, &vouched)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouches: %w", err)
	}
	return vouched, nil
}

func (r *vouchRepository) Has(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error) {
	exists, err := r.db.NewSelect().Model((*models.Vouch)(nil)).
		Where("guild_id = ? AND user_id = ? AND giveaway_id = ?", guildID, userID, giveawayID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check vouch: %w", err)
	}
	return exists, nil
}

func (r *vouchRepository) AddBlock(ctx context.Context, db bun.IDB, guildID, userID snowflake.ID, giveawayID int64) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewInsert().
		Model(&models.VouchBlock{GuildID: guildID, UserID: userID, GiveawayID: giveawayID}).
		On("CONFLICT (guild_id, user_id, giveaway_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add vouch block: %w", err)
	}
	return nil
}

func (r *vouchRepository) IsBlocked(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error) {
	exists, err := r.db.NewSelect().Model((*models.VouchBlock)(nil)).
		Where("guild_id = ? AND user_id = ? AND giveaway_id = ?", guildID, userID, giveawayID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check vouch block: %w", err)
	}
	return exists, nil
}

func (r *vouchRepository) DeleteForGiveaway(ctx context.Context, db bun.IDB, giveawayID int64) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewDelete().Model((*models.Vouch)(nil)).
		Where("giveaway_id = ?", giveawayID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete vouches: %w", err)
	}
	if _, err := db.NewDelete().Model((*models.VouchBlock)(nil)).
		Where("giveaway_id = ?", giveawayID).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete vouch blocks: %w", err)
	}
	return nil
}

func (r *vouchRepository) Outstanding(ctx context.Context, guildID, userID snowflake.ID) ([]WonGiveaway, error) {
	var won []WonGiveaway
	err := r.db.NewSelect().
		ColumnExpr("g.id AS giveaway_id").
		ColumnExpr("g.prize AS prize").
		Model((*models.Winner)(nil)).
		ModelTableExpr("winners AS w").
		Join("JOIN giveaways AS g ON g.id = w.giveaway_id").
		Join("LEFT JOIN vouches AS v ON v.giveaway_id = w.giveaway_id AND v.user_id = w.user_id AND v.guild_id = g.guild_id").
		Where("g.guild_id = ?", guildID).
		Where("w.user_id = ?", userID).
		Where("g.status = ?", models.GiveawayStatusEnded).
		Where("v.id IS NULL").
		OrderExpr("g.id ASC").
		Scan(ctx, &won)
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding vouches: %w", err)
	}
	return won, nil
}
