package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

var ErrGiveawayNotFound = errors.New("giveaway not found")

// TopWinner is one leaderboard row: a user's aggregate wins and vouches in
// a guild.
type TopWinner struct {
	UserID  snowflake.ID `bun:"user_id"`
	Wins    int          `bun:"wins"`
	Vouches int          `bun:"vouches"`
}

// WonGiveaway is one giveaway a user won, for win/vouch listings.
type WonGiveaway struct {
	GiveawayID int64  `bun:"giveaway_id"`
	Prize      string `bun:"prize"`
}

type GiveawayRepository interface {
	DB() *bun.DB

	Create(ctx context.Context, db bun.IDB, g *models.Giveaway) error
	GetByID(ctx context.Context, id int64) (*models.Giveaway, error)
	GetByGuildAndPrize(ctx context.Context, db bun.IDB, guildID snowflake.ID, prize string) (*models.Giveaway, error)
	ListByGuild(ctx context.Context, guildID snowflake.ID) ([]*models.Giveaway, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Giveaway, error)
	SetMessageID(ctx context.Context, id int64, messageID snowflake.ID) error

	AddEntrant(ctx context.Context, giveawayID int64, userID snowflake.ID) (bool, error)
	RemoveEntrant(ctx context.Context, giveawayID int64, userID snowflake.ID) (bool, error)
	Entrants(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error)
	EntrantCount(ctx context.Context, giveawayID int64) (int, error)

	// MarkEnded is the running -> ended transition gate: a conditional
	// update that succeeds for exactly one caller. The winner of the race
	// owns winner selection for the giveaway.
	MarkEnded(ctx context.Context, db bun.IDB, id int64) (bool, error)

	Winners(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error)
	HistoricalWinners(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error)

	// AddWinners and RemoveWinners are the only paths that touch winner
	// rows, so the paired win_counts adjustment can never be skipped. Both
	// are idempotent per user: the aggregate moves only when a winner row
	// is actually inserted or deleted.
	AddWinners(ctx context.Context, db bun.IDB, guildID snowflake.ID, giveawayID int64, userIDs []snowflake.ID) error
	RemoveWinners(ctx context.Context, db bun.IDB, guildID snowflake.ID, giveawayID int64, userIDs []snowflake.ID) (removed []snowflake.ID, err error)

	DeleteGiveaway(ctx context.Context, db bun.IDB, id int64) (bool, error)

	WinCount(ctx context.Context, guildID, userID snowflake.ID) (int, error)
	TopWinners(ctx context.Context, guildID snowflake.ID, limit int) ([]TopWinner, error)
	WonGiveaways(ctx context.Context, guildID, userID snowflake.ID) ([]WonGiveaway, error)
}

type giveawayRepository struct {
	db *bun.DB
}

func NewGiveawayRepository(db *bun.DB) GiveawayRepository {
	return &giveawayRepository{db: db}
}

func (r *giveawayRepository) DB() *bun.DB {
	return r.db
}

func (r *giveawayRepository) Create(ctx context.Context, db bun.IDB, g *models.Giveaway) error {
	if db == nil {
		db = r.db
	}
	if _, err := db.NewInsert().Model(g).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create giveaway: %w", err)
	}
	return nil
}

func (r *giveawayRepository) GetByID(ctx context.Context, id int64) (*models.Giveaway, error) {
	g := new(models.Giveaway)
	err := r.db.NewSelect().Model(g).Where("g.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return g, nil
}

func (r *giveawayRepository) GetByGuildAndPrize(ctx context.Context, db bun.IDB, guildID snowflake.ID, prize string) (*models.Giveaway, error) {
	if db == nil {
		db = r.db
	}
	g := new(models.Giveaway)
	err := db.NewSelect().Model(g).
		Where("g.guild_id = ?", guildID).
		Where("g.prize = ?", prize).
		OrderExpr("g.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGiveawayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway by prize: %w", err)
	}
	return g, nil
}

func (r *giveawayRepository) ListByGuild(ctx context.Context, guildID snowflake.ID) ([]*models.Giveaway, error) {
	var giveaways []*models.Giveaway
	err := r.db.NewSelect().Model(&giveaways).
		Where("g.guild_id = ?", guildID).
		OrderExpr("g.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list giveaways: %w", err)
	}
	return giveaways, nil
}

func (r *giveawayRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	var giveaways []*models.Giveaway
	err := r.db.NewSelect().Model(&giveaways).
		Where("g.status = ?", models.GiveawayStatusRunning).
		Where("g.deadline <= ?", now).
		OrderExpr("g.deadline ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list due giveaways: %w", err)
	}
	return giveaways, nil
}

func (r *giveawayRepository) SetMessageID(ctx context.Context, id int64, messageID snowflake.ID) error {
	_, err := r.db.NewUpdate().Model((*models.Giveaway)(nil)).
		Set("message_id = ?", messageID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set message id: %w", err)
	}
	return nil
}

func (r *giveawayRepository) AddEntrant(ctx context.Context, giveawayID int64, userID snowflake.ID) (bool, error) {
	res, err := r.db.NewInsert().
		Model(&models.Entrant{GiveawayID: giveawayID, UserID: userID}).
		On("CONFLICT (giveaway_id, user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to add entrant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *giveawayRepository) RemoveEntrant(ctx context.Context, giveawayID int64, userID snowflake.ID) (bool, error) {
	res, err := r.db.NewDelete().Model((*models.Entrant)(nil)).
		Where("giveaway_id = ? AND user_id = ?", giveawayID, userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to remove entrant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *giveawayRepository) Entrants(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error) {
	if db == nil {
		db = r.db
	}
	var ids []snowflake.ID
	err := db.NewSelect().Model((*models.Entrant)(nil)).
		Column("user_id").
		Where("giveaway_id = ?", giveawayID).
		OrderExpr("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list entrants: %w", err)
	}
	return ids, nil
}

func (r *giveawayRepository) EntrantCount(ctx context.Context, giveawayID int64) (int, error) {
	count, err := r.db.NewSelect().Model((*models.Entrant)(nil)).
		Where("giveaway_id = ?", giveawayID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entrants: %w", err)
	}
	return count, nil
}

func (r *giveawayRepository) MarkEnded(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	if db == nil {
		db = r.db
	}
	res, err := db.NewUpdate().Model((*models.Giveaway)(nil)).
		Set("status = ?", models.GiveawayStatusEnded).
		Where("id = ?", id).
		Where("status = ?", models.GiveawayStatusRunning).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark giveaway ended: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *giveawayRepository) Winners(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error) {
	if db == nil {
		db = r.db
	}
	var ids []snowflake.ID
	err := db.NewSelect().Model((*models.Winner)(nil)).
		Column("user_id").
		Where("giveaway_id = ?", giveawayID).
		OrderExpr("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return ids, nil
}

func (r *giveawayRepository) HistoricalWinners(ctx context.Context, db bun.IDB, giveawayID int64) ([]snowflake.ID, error) {
	if db == nil {
		db = r.db
	}
	var ids []snowflake.ID
	err := db.NewSelect().Model((*models.WinnerHistory)(nil)).
		Column("user_id").
		Where("giveaway_id = ?", giveawayID).
		OrderExpr("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list historical winners: %w", err)
	}
	return ids, nil
}

func (r *giveawayRepository) AddWinners(ctx context.Context, db bun.IDB, guildID snowflake.ID, giveawayID int64, userIDs []snowflake.ID) error {
	if db == nil {
		db = r.db
	}
	for _, userID := range userIDs {
		res, err := db.NewInsert().
			Model(&models.Winner{GiveawayID: giveawayID, UserID: userID}).
			On("CONFLICT (giveaway_id, user_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert winner: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Already a winner; the aggregate stays put.
			continue
		}

		if _, err = db.NewInsert().
			Model(&models.WinnerHistory{GiveawayID: giveawayID, UserID: userID}).
			On("CONFLICT (giveaway_id, user_id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to record winner history: %w", err)
		}

		if _, err = db.NewInsert().
			Model(&models.WinCount{GuildID: guildID, UserID: userID, Wins: 1}).
			On("CONFLICT (guild_id, user_id) DO UPDATE").
			Set("wins = wc.wins + 1").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to increment win count: %w", err)
		}
	}
	return nil
}

func (r *giveawayRepository) RemoveWinners(ctx context.Context, db bun.IDB, guildID snowflake.ID, giveawayID int64, userIDs []snowflake.ID) ([]snowflake.ID, error) {
	if db == nil {
		db = r.db
	}
	var removed []snowflake.ID
	for _, userID := range userIDs {
		res, err := db.NewDelete().Model((*models.Winner)(nil)).
			Where("giveaway_id = ? AND user_id = ?", giveawayID, userID).
			Exec(ctx)
		if err != nil {
			return removed, fmt.Errorf("failed to delete winner: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		if n == 0 {
			continue
		}
		removed = append(removed, userID)

		if _, err = db.NewUpdate().Model((*models.WinCount)(nil)).
			Set("wins = wins - 1").
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Where("wins > 0").
			Exec(ctx); err != nil {
			return removed, fmt.Errorf("failed to decrement win count: %w", err)
		}
		if _, err = db.NewDelete().Model((*models.WinCount)(nil)).
			Where("guild_id = ? AND user_id = ?", guildID, userID).
			Where("wins <= 0").
			Exec(ctx); err != nil {
			return removed, fmt.Errorf("failed to prune win count: %w", err)
		}
	}
	return removed, nil
}

func (r *giveawayRepository) DeleteGiveaway(ctx context.Context, db bun.IDB, id int64) (bool, error) {
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().Model((*models.Giveaway)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete giveaway: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *giveawayRepository) WinCount(ctx context.Context, guildID, userID snowflake.ID) (int, error) {
	wc := new(models.WinCount)
	err := r.db.NewSelect().Model(wc).
		Where("wc.guild_id = ? AND wc.user_id = ?", guildID, userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get win count: %w", err)
	}
	return wc.Wins, nil
}

func (r *giveawayRepository) TopWinners(ctx context.Context, guildID snowflake.ID, limit int) ([]TopWinner, error) {
	var top []TopWinner
	err := r.db.NewSelect().
		ColumnExpr("wc.user_id AS user_id").
		ColumnExpr("wc.wins AS wins").
		ColumnExpr("COUNT(v.id) AS vouches").
		Model((*models.WinCount)(nil)).
		Join("LEFT JOIN vouches AS v ON v.guild_id = wc.guild_id AND v.user_id = wc.user_id").
		Where("wc.guild_id = ?", guildID).
		GroupExpr("wc.user_id, wc.wins").
		OrderExpr("wc.wins DESC, vouches DESC").
		Limit(limit).
		Scan(ctx, &top)
	if err != nil {
		return nil, fmt.Errorf("failed to query top winners: %w", err)
	}
	return top, nil
}

func (r *giveawayRepository) WonGiveaways(ctx context.Context, guildID, userID snowflake.ID) ([]WonGiveaway, error) {
	var won []WonGiveaway
	err := r.db.NewSelect().
		ColumnExpr("g.id AS giveaway_id").
		ColumnExpr("g.prize AS prize").
		Model((*models.Winner)(nil)).
		Join("JOIN giveaways AS g ON g.id = w.giveaway_id").
		Where("g.guild_id = ?", guildID).
		Where("w.user_id = ?", userID).
		OrderExpr("g.id DESC").
		Scan(ctx, &won)
	if err != nil {
		return nil, fmt.Errorf("failed to list won giveaways: %w", err)
	}
	return won, nil
}
