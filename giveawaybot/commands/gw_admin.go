package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot"
	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
	"github.com/winvouch/giveaway-bot/giveawaybot/utils"
)

func handleStart(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	prize := strings.TrimSpace(data.String("prize"))

	duration, err := utils.ParseDuration(data.String("duration"))
	if err != nil {
		return ephemeralError(e, err.Error())
	}
	winners := data.Int("winners")
	if winners == 0 {
		winners = 1
	}

	g, err := b.GiveawayManager.Create(ctx, *e.GuildID(), e.ChannelID(), e.User().ID, prize, winners, duration)
	if err != nil {
		if errors.Is(err, giveaway.ErrValidation) {
			return ephemeralError(e, err.Error())
		}
		return fmt.Errorf("failed to create giveaway: %w", err)
	}

	msg, err := e.Client().Rest().CreateMessage(g.ChannelID, discord.MessageCreate{
		Embeds:     []discord.Embed{utils.GiveawayEmbed(g, 0)},
		Components: []discord.ContainerComponent{utils.GiveawayButtons(g.ID)},
	})
	if err != nil {
		return fmt.Errorf("failed to post giveaway message: %w", err)
	}
	if err = b.GiveawayRepository.SetMessageID(ctx, g.ID, msg.ID); err != nil {
		slog.Error("Failed to store giveaway message id",
			slog.Int64("giveaway_id", g.ID),
			slog.Any("error", err))
	}

	return ephemeralSuccess(e, fmt.Sprintf("Giveaway **#%d** for **%s** started, ending %s.",
		g.ID, g.Prize, utils.FormatDuration(duration)))
}

// requireGuildGiveaway rejects giveaway IDs that don't belong to the
// invoking guild before any engine call. A true error return means the
// handler already replied (or a storage failure is being propagated).
func requireGuildGiveaway(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent, id int64) (bool, error) {
	_, err := b.GiveawayManager.GuildGiveaway(ctx, *e.GuildID(), id)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return false, ephemeralError(e, "No giveaway with that ID in this server.")
	case err != nil:
		return false, fmt.Errorf("failed to look up giveaway: %w", err)
	}
	return true, nil
}

func handleEnd(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	id := int64(e.SlashCommandInteractionData().Int("id"))
	if ok, err := requireGuildGiveaway(ctx, b, e, id); !ok {
		return err
	}

	winners, err := b.GiveawayManager.Close(ctx, id, "Ended Early")
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID.")
	case errors.Is(err, giveaway.ErrNotRunning):
		return ephemeralError(e, "That giveaway has already ended.")
	case err != nil:
		return fmt.Errorf("failed to end giveaway: %w", err)
	}

	if len(winners) == 0 {
		return ephemeralSuccess(e, fmt.Sprintf("Giveaway **#%d** ended with no entries.", id))
	}
	return ephemeralSuccess(e, fmt.Sprintf("Giveaway **#%d** ended. Winners: %s", id, mentionList(winners)))
}

func handleReroll(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	id := int64(data.Int("id"))
	if ok, err := requireGuildGiveaway(ctx, b, e, id); !ok {
		return err
	}
	count := data.Int("count")
	var target snowflake.ID
	if user, ok := data.OptUser("user"); ok {
		target = user.ID
	}

	removed, added, err := b.GiveawayManager.Reroll(ctx, id, count, target)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID.")
	case errors.Is(err, giveaway.ErrNotEnded):
		return ephemeralError(e, "That giveaway is still running; end it first.")
	case errors.Is(err, giveaway.ErrNoWinners):
		return ephemeralError(e, "That giveaway has no winners to replace.")
	case errors.Is(err, giveaway.ErrNotAWinner):
		return ephemeralError(e, "That user is not a current winner.")
	case errors.Is(err, giveaway.ErrNoEntrants), errors.Is(err, giveaway.ErrNoEligiblePool):
		return ephemeralSuccess(e, fmt.Sprintf(
			"Removed %s, but nobody eligible is left to replace them. The giveaway now has fewer winners.",
			mentionList(removed)))
	case err != nil:
		return fmt.Errorf("failed to reroll giveaway: %w", err)
	}

	return ephemeralSuccess(e, fmt.Sprintf("Removed %s, drew %s.", mentionList(removed), mentionList(added)))
}

func handleDelete(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	id := int64(e.SlashCommandInteractionData().Int("id"))
	if ok, err := requireGuildGiveaway(ctx, b, e, id); !ok {
		return err
	}

	err := b.GiveawayManager.Delete(ctx, id)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID.")
	case err != nil:
		return fmt.Errorf("failed to delete giveaway: %w", err)
	}
	return ephemeralSuccess(e, fmt.Sprintf("Giveaway **#%d** deleted; its wins and vouches were unwound.", id))
}

func handleAdjustWins(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	user := data.User("user")
	id := int64(data.Int("id"))
	if ok, err := requireGuildGiveaway(ctx, b, e, id); !ok {
		return err
	}
	delta := data.Int("delta")

	err := b.GiveawayManager.AdjustWin(ctx, id, user.ID, delta)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID.")
	case errors.Is(err, giveaway.ErrValidation):
		return ephemeralError(e, err.Error())
	case err != nil:
		return fmt.Errorf("failed to adjust win: %w", err)
	}

	if delta > 0 {
		return ephemeralSuccess(e, fmt.Sprintf("Granted <@%d> a win on giveaway **#%d**.", user.ID, id))
	}
	return ephemeralSuccess(e, fmt.Sprintf("Revoked <@%d>'s win on giveaway **#%d**.", user.ID, id))
}

func handleManual(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	user := data.User("user")
	prize := strings.TrimSpace(data.String("prize"))

	g, err := b.GiveawayManager.RecordManualWin(ctx, *e.GuildID(), prize, user.ID)
	switch {
	case errors.Is(err, giveaway.ErrValidation):
		return ephemeralError(e, err.Error())
	case err != nil:
		return fmt.Errorf("failed to record manual win: %w", err)
	}
	return ephemeralSuccess(e, fmt.Sprintf("Recorded a win for <@%d> on **%s** (giveaway #%d).",
		user.ID, g.Prize, g.ID))
}

func handleAddVouch(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	user := data.User("user")
	id := int64(data.Int("id"))

	err := b.VouchService.Record(ctx, *e.GuildID(), user.ID, id)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID in this server.")
	case errors.Is(err, giveaway.ErrVouchBlocked):
		return ephemeralError(e, "That vouch has been blocked.")
	case errors.Is(err, giveaway.ErrNotAWinner):
		return ephemeralError(e, "That user did not win that giveaway.")
	case errors.Is(err, giveaway.ErrAlreadyVouched):
		return ephemeralError(e, "That vouch already exists.")
	case err != nil:
		return fmt.Errorf("failed to add vouch: %w", err)
	}
	return ephemeralSuccess(e, fmt.Sprintf("Vouch recorded for <@%d> on giveaway **#%d**.", user.ID, id))
}

func handleRemoveVouch(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	user := data.User("user")
	id := int64(data.Int("id"))

	if err := b.VouchService.Block(ctx, *e.GuildID(), user.ID, id); err != nil {
		if errors.Is(err, giveaway.ErrNotFound) {
			return ephemeralError(e, "No giveaway with that ID in this server.")
		}
		return fmt.Errorf("failed to remove vouch: %w", err)
	}
	return ephemeralSuccess(e, fmt.Sprintf(
		"Removed <@%d>'s vouch on giveaway **#%d** and blocked it from being re-added.", user.ID, id))
}

func handleSetVouchChannel(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	channel := e.SlashCommandInteractionData().Channel("channel")

	if err := b.VouchService.SetVouchChannel(ctx, *e.GuildID(), channel.ID); err != nil {
		return fmt.Errorf("failed to set vouch channel: %w", err)
	}
	return ephemeralSuccess(e, fmt.Sprintf("Vouch channel set to <#%d>.", channel.ID))
}

func mentionList(ids []snowflake.ID) string {
	if len(ids) == 0 {
		return "nobody"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("<@%d>", id)
	}
	return strings.Join(parts, ", ")
}
