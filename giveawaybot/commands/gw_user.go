package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/winvouch/giveaway-bot/giveawaybot"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
	"github.com/winvouch/giveaway-bot/giveawaybot/utils"
)

const leaderboardPerPage = 10

func handleList(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	giveaways, err := b.GiveawayManager.List(ctx, *e.GuildID())
	if err != nil {
		return fmt.Errorf("failed to list giveaways: %w", err)
	}
	if len(giveaways) == 0 {
		return ephemeralSuccess(e, "No giveaways in this server yet.")
	}

	var running, ended strings.Builder
	for _, g := range giveaways {
		if g.Status == models.GiveawayStatusRunning {
			fmt.Fprintf(&running, "`#%d` **%s** — %d winner(s), ends <t:%d:R>\n",
				g.ID, g.Prize, g.WinnersRequested, g.Deadline.Unix())
		} else {
			fmt.Fprintf(&ended, "`#%d` **%s**\n", g.ID, g.Prize)
		}
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("🎉 Giveaways").
		SetColor(utils.InfoColor)
	if running.Len() > 0 {
		embed.AddField("Running", running.String(), false)
	}
	if ended.Len() > 0 {
		embed.AddField("Ended", ended.String(), false)
	}

	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed.Build()}})
}

func handleWins(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	user := e.User()
	if target, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
		user = target
	}

	wins, err := b.GiveawayManager.UserWins(ctx, *e.GuildID(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch wins: %w", err)
	}
	if len(wins) == 0 {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{utils.InfoEmbed("🏆 Wins", fmt.Sprintf("<@%d> has no wins yet.", user.ID))},
		})
	}

	var sb strings.Builder
	for _, w := range wins {
		fmt.Fprintf(&sb, "`#%d` **%s**\n", w.GiveawayID, w.Prize)
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{utils.InfoEmbed(
			fmt.Sprintf("🏆 Wins (%d)", len(wins)),
			fmt.Sprintf("<@%d> won:\n%s", user.ID, sb.String()))},
	})
}

func handleVouches(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	user := e.User()
	if target, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
		user = target
	}

	vouches, err := b.VouchService.UserVouches(ctx, *e.GuildID(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch vouches: %w", err)
	}
	outstanding, err := b.VouchService.Outstanding(ctx, *e.GuildID(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch outstanding wins: %w", err)
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🤝 Vouches (%d)", len(vouches))).
		SetColor(utils.InfoColor)

	if len(vouches) == 0 {
		embed.SetDescription(fmt.Sprintf("<@%d> has no vouches yet.", user.ID))
	} else {
		var sb strings.Builder
		for _, v := range vouches {
			fmt.Fprintf(&sb, "`#%d` **%s**\n", v.GiveawayID, v.Prize)
		}
		embed.SetDescription(fmt.Sprintf("<@%d> vouched for:\n%s", user.ID, sb.String()))
	}
	if len(outstanding) > 0 {
		var sb strings.Builder
		for _, w := range outstanding {
			fmt.Fprintf(&sb, "`#%d` **%s**\n", w.GiveawayID, w.Prize)
		}
		embed.AddField("Still owed", sb.String(), false)
	}

	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed.Build()}})
}

func handleLeaderboard(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	top, err := b.GiveawayManager.TopWinners(ctx, *e.GuildID(), 100)
	if err != nil {
		return fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	if len(top) == 0 {
		return ephemeralSuccess(e, "Nobody has won anything yet.")
	}

	totalPages := (len(top) + leaderboardPerPage - 1) / leaderboardPerPage
	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * leaderboardPerPage
			end := min(start+leaderboardPerPage, len(top))

			var sb strings.Builder
			for i, w := range top[start:end] {
				fmt.Fprintf(&sb, "**%d.** <@%d> — %d win(s), %d vouch(es)\n",
					start+i+1, w.UserID, w.Wins, w.Vouches)
			}
			embed.SetTitle("🏆 Giveaway Leaderboard").
				SetDescription(sb.String()).
				SetColor(utils.GiveawayColor).
				SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}

func handleVouch(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	id := int64(e.SlashCommandInteractionData().Int("id"))

	err := b.VouchService.Record(ctx, *e.GuildID(), e.User().ID, id)
	switch {
	case errors.Is(err, giveaway.ErrNotFound):
		return ephemeralError(e, "No giveaway with that ID in this server.")
	case errors.Is(err, giveaway.ErrVouchBlocked):
		return ephemeralError(e, "Your vouch for that giveaway has been blocked by a moderator.")
	case errors.Is(err, giveaway.ErrNotAWinner):
		return ephemeralError(e, "You didn't win that giveaway.")
	case errors.Is(err, giveaway.ErrAlreadyVouched):
		return ephemeralError(e, "You already vouched for that giveaway.")
	case err != nil:
		return fmt.Errorf("failed to record vouch: %w", err)
	}

	g, err := b.GiveawayManager.Giveaway(ctx, id)
	if err != nil {
		return ephemeralSuccess(e, "Vouch recorded. Thanks!")
	}
	return ephemeralSuccess(e, fmt.Sprintf("Vouch recorded for **%s**. Thanks!", g.Prize))
}

func handleVouchChannel(ctx context.Context, b *giveawaybot.Bot, e *handler.CommandEvent) error {
	channelID, err := b.VouchService.VouchChannel(ctx, *e.GuildID())
	if err != nil {
		return fmt.Errorf("failed to look up vouch channel: %w", err)
	}
	if channelID == 0 {
		return ephemeralSuccess(e, "No vouch channel configured. Set one with `/gw setvouchchannel`.")
	}
	return ephemeralSuccess(e, fmt.Sprintf("Vouches are collected in <#%d>.", channelID))
}

func handleHelp(e *handler.CommandEvent) error {
	embed := discord.NewEmbedBuilder().
		SetTitle("Giveaway Commands").
		SetColor(utils.InfoColor).
		AddField("For everyone",
			"`/gw list` — running and ended giveaways\n"+
				"`/gw wins [user]` — giveaways a member has won\n"+
				"`/gw vouches [user]` — vouches given and still owed\n"+
				"`/gw leaderboard` — top winners in this server\n"+
				"`/gw vouch <id>` — vouch for a giveaway you won\n"+
				"`/gw vouchchannel` — where vouches are collected", false).
		AddField("Manage Server only",
			"`/gw start` — start a giveaway\n"+
				"`/gw end <id>` — end early and draw winners\n"+
				"`/gw reroll <id> [user]` — replace winners\n"+
				"`/gw delete <id>` — delete and unwind a giveaway\n"+
				"`/gw adjustwins <user> <id> <delta>` — grant or revoke a win\n"+
				"`/gw manual <user> <prize>` — record an off-platform win\n"+
				"`/gw addvouch` / `/gw removevouch` — manage vouches\n"+
				"`/gw setvouchchannel` — set the vouch channel", false).
		SetFooter("Winners must vouch before entering new giveaways.", "").
		Build()
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{embed},
		Flags:  discord.MessageFlagEphemeral,
	})
}
