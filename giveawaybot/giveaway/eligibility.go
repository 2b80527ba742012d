package giveaway

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
)

// Gate decides whether a user may enter giveaways in a guild. The rule is
// cumulative and guild-wide: total wins must not exceed total vouches,
// regardless of which giveaways either came from. Equal counts permit entry.
type Gate struct {
	giveaways repositories.GiveawayRepository
	vouches   repositories.VouchRepository
}

func NewGate(giveaways repositories.GiveawayRepository, vouches repositories.VouchRepository) *Gate {
	return &Gate{giveaways: giveaways, vouches: vouches}
}

func (g *Gate) CanEnter(ctx context.Context, guildID, userID snowflake.ID) (bool, error) {
	wins, err := g.giveaways.WinCount(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	if wins == 0 {
		return true, nil
	}
	vouches, err := g.vouches.CountForUser(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	return wins <= vouches, nil
}

// Shortfall reports how many vouches the user still owes before they may
// enter again, for user-facing refusals.
func (g *Gate) Shortfall(ctx context.Context, guildID, userID snowflake.ID) (wins, vouches int, err error) {
	wins, err = g.giveaways.WinCount(ctx, guildID, userID)
	if err != nil {
		return 0, 0, err
	}
	vouches, err = g.vouches.CountForUser(ctx, guildID, userID)
	if err != nil {
		return 0, 0, err
	}
	return wins, vouches, nil
}
