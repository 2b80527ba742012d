package giveaway

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

// ClosedEvent is emitted once per giveaway, by whichever actor wins the
// close race.
type ClosedEvent struct {
	Giveaway     *models.Giveaway
	Winners      []snowflake.ID
	EntrantCount int
	Reason       string
}

// RerolledEvent is emitted after a reroll that removed and/or added winners.
type RerolledEvent struct {
	Giveaway *models.Giveaway
	Removed  []snowflake.ID
	Added    []snowflake.ID
}

// Notifier receives engine events for presentation. Implementations must not
// block the engine; failures are theirs to log. The engine itself never
// talks to the chat platform.
type Notifier interface {
	GiveawayClosed(ctx context.Context, event ClosedEvent)
	GiveawayRerolled(ctx context.Context, event RerolledEvent)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) GiveawayClosed(context.Context, ClosedEvent)     {}
func (NopNotifier) GiveawayRerolled(context.Context, RerolledEvent) {}
