package giveaway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
)

// VouchService records and moderates vouches, the currency that balances
// wins in the eligibility gate. It is the sole writer of vouch and
// vouch-block state.
type VouchService struct {
	giveaways   repositories.GiveawayRepository
	vouches     repositories.VouchRepository
	guildConfig repositories.GuildConfigRepository

	// Fallback when a guild has no configured vouch channel.
	defaultVouchChannel snowflake.ID
}

func NewVouchService(giveaways repositories.GiveawayRepository, vouches repositories.VouchRepository, guildConfig repositories.GuildConfigRepository, defaultVouchChannel snowflake.ID) *VouchService {
	return &VouchService{
		giveaways:           giveaways,
		vouches:             vouches,
		guildConfig:         guildConfig,
		defaultVouchChannel: defaultVouchChannel,
	}
}

// giveawayInGuild resolves a giveaway only when it belongs to the guild.
// A giveaway from another guild is indistinguishable from a missing one.
func (s *VouchService) giveawayInGuild(ctx context.Context, guildID snowflake.ID, giveawayID int64) (*models.Giveaway, error) {
	g, err := s.giveaways.GetByID(ctx, giveawayID)
	if errors.Is(err, repositories.ErrGiveawayNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if g.GuildID != guildID {
		return nil, ErrNotFound
	}
	return g, nil
}

// Record stores a user's vouch for a giveaway they won. Blocked triples are
// refused before anything else is checked.
func (s *VouchService) Record(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) error {
	if _, err := s.giveawayInGuild(ctx, guildID, giveawayID); err != nil {
		return err
	}

	blocked, err := s.vouches.IsBlocked(ctx, guildID, userID, giveawayID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrVouchBlocked
	}

	winners, err := s.giveaways.Winners(ctx, nil, giveawayID)
	if err != nil {
		return err
	}
	if !contains(winners, userID) {
		return ErrNotAWinner
	}

	added, err := s.vouches.Add(ctx, guildID, userID, giveawayID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyVouched
	}

	slog.Info("Vouch recorded",
		slog.String("guild_id", guildID.String()),
		slog.String("user_id", userID.String()),
		slog.Int64("giveaway_id", giveawayID))
	return nil
}

// Block removes any existing vouch for the triple and forbids it
// permanently. Authorization is the command layer's concern.
func (s *VouchService) Block(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) error {
	if _, err := s.giveawayInGuild(ctx, guildID, giveawayID); err != nil {
		return err
	}

	tx, err := s.giveaways.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = s.vouches.Remove(ctx, tx, guildID, userID, giveawayID); err != nil {
		return err
	}
	if err = s.vouches.AddBlock(ctx, tx, guildID, userID, giveawayID); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vouch block: %w", err)
	}

	slog.Info("Vouch blocked",
		slog.String("guild_id", guildID.String()),
		slog.String("user_id", userID.String()),
		slog.Int64("giveaway_id", giveawayID))
	return nil
}

// Remove deletes a vouch without blocking future ones.
func (s *VouchService) Remove(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) error {
	if _, err := s.giveawayInGuild(ctx, guildID, giveawayID); err != nil {
		return err
	}
	removed, err := s.vouches.Remove(ctx, nil, guildID, userID, giveawayID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// Outstanding lists the ended giveaways a user won but has not vouched for.
func (s *VouchService) Outstanding(ctx context.Context, guildID, userID snowflake.ID) ([]repositories.WonGiveaway, error) {
	return s.vouches.Outstanding(ctx, guildID, userID)
}

func (s *VouchService) UserVouches(ctx context.Context, guildID, userID snowflake.ID) ([]repositories.VouchedGiveaway, error) {
	return s.vouches.ListForUser(ctx, guildID, userID)
}

func (s *VouchService) IsBlocked(ctx context.Context, guildID, userID snowflake.ID, giveawayID int64) (bool, error) {
	return s.vouches.IsBlocked(ctx, guildID, userID, giveawayID)
}

// VouchChannel resolves the guild's vouch channel, falling back to the
// process-wide default when unset.
func (s *VouchService) VouchChannel(ctx context.Context, guildID snowflake.ID) (snowflake.ID, error) {
	channelID, err := s.guildConfig.VouchChannel(ctx, guildID)
	if err != nil {
		return 0, err
	}
	if channelID == 0 {
		return s.defaultVouchChannel, nil
	}
	return channelID, nil
}

func (s *VouchService) SetVouchChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	return s.guildConfig.SetVouchChannel(ctx, guildID, channelID)
}
