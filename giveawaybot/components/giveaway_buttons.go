package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/winvouch/giveaway-bot/giveawaybot"
	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
	"github.com/winvouch/giveaway-bot/giveawaybot/utils"
)

const buttonTimeout = 10 * time.Second

// GiveawayButtonHandler routes the /giveaway/join/{id} and
// /giveaway/leave/{id} buttons into the engine and refreshes the entry
// count on the giveaway message.
func GiveawayButtonHandler(b *giveawaybot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		parts := strings.Split(strings.TrimPrefix(data.CustomID(), "/giveaway/"), "/")
		if len(parts) != 2 {
			return fmt.Errorf("malformed giveaway button id %q", data.CustomID())
		}
		action := parts[0]
		giveawayID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed giveaway id in button %q", data.CustomID())
		}

		ctx, cancel := context.WithTimeout(context.Background(), buttonTimeout)
		defer cancel()

		userID := e.User().ID
		switch action {
		case "join":
			err = b.GiveawayManager.Enter(ctx, giveawayID, userID)
		case "leave":
			err = b.GiveawayManager.Leave(ctx, giveawayID, userID)
		default:
			return fmt.Errorf("unknown giveaway button action %q", action)
		}

		if err != nil {
			return ephemeral(e, joinLeaveError(action, err))
		}

		go refreshEntryCount(b, e, giveawayID)

		if action == "join" {
			return ephemeral(e, utils.SuccessEmbed("You're in! Good luck 🍀"))
		}
		return ephemeral(e, utils.SuccessEmbed("You left the giveaway."))
	}
}

func joinLeaveError(action string, err error) discord.Embed {
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return utils.ErrorEmbed("That giveaway no longer exists.")
	case errors.Is(err, giveaway.ErrNotRunning):
		return utils.ErrorEmbed("That giveaway has already ended.")
	case errors.Is(err, giveaway.ErrNotEligible):
		return utils.ErrorEmbed("You can't enter yet: vouch for your previous wins first.")
	case errors.Is(err, giveaway.ErrAlreadyEntered):
		return utils.ErrorEmbed("You're already entered.")
	case errors.Is(err, giveaway.ErrNotEntered):
		return utils.ErrorEmbed("You weren't entered in that giveaway.")
	default:
		slog.Error("Giveaway button failed",
			slog.String("action", action),
			slog.Any("error", err))
		return utils.ErrorEmbed("Something went wrong, try again.")
	}
}

// refreshEntryCount rebuilds the giveaway embed with the latest entry
// count. Best effort: a stale count self-corrects on the next press.
func refreshEntryCount(b *giveawaybot.Bot, e *handler.ComponentEvent, giveawayID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), buttonTimeout)
	defer cancel()

	g, err := b.GiveawayManager.Giveaway(ctx, giveawayID)
	if err != nil || !g.Running() {
		return
	}
	count, err := b.GiveawayManager.EntrantCount(ctx, giveawayID)
	if err != nil {
		return
	}

	embed := utils.GiveawayEmbed(g, count)
	if _, err = e.Client().Rest().UpdateMessage(e.ChannelID(), e.Message.ID, discord.MessageUpdate{
		Embeds:     &[]discord.Embed{embed},
		Components: &[]discord.ContainerComponent{utils.GiveawayButtons(g.ID)},
	}); err != nil {
		slog.Warn("Failed to refresh giveaway entry count",
			slog.Int64("giveaway_id", giveawayID),
			slog.Any("error", err))
	}
}

func ephemeral(e *handler.ComponentEvent, embed discord.Embed) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{embed},
		Flags:  discord.MessageFlagEphemeral,
	})
}
