package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/winvouch/giveaway-bot/giveawaybot"
	"github.com/winvouch/giveaway-bot/giveawaybot/utils"
)

const commandTimeout = 15 * time.Second

var GW = discord.SlashCommandCreate{
	Name:        "gw",
	Description: "🎉 Run and moderate giveaways",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Start a giveaway in this channel",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "prize",
					Description: "What is being given away",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "duration",
					Description: "How long it runs, e.g. 30s, 10m, 2h, 1d",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "winners",
					Description: "How many winners to draw (default 1)",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "end",
			Description: "End a giveaway early and draw winners now",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reroll",
			Description: "Replace winners of an ended giveaway",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "count",
					Description: "How many winners to replace (default 1)",
					Required:    false,
				},
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Specific winner to replace",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "delete",
			Description: "Delete a giveaway and unwind its wins and vouches",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "adjustwins",
			Description: "Manually grant or revoke a win on a giveaway",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Who to adjust",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "delta",
					Description: "Grant or revoke",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceInt{
						{Name: "➕ Grant win", Value: 1},
						{Name: "➖ Revoke win", Value: -1},
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "manual",
			Description: "Record a win that happened outside the bot",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The winner",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:         "prize",
					Description:  "Prize name (reused if it already exists)",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "List this server's giveaways",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "wins",
			Description: "Show a user's wins",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Defaults to you",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "vouches",
			Description: "Show a user's vouches",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Defaults to you",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "leaderboard",
			Description: "Top winners of this server",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "vouch",
			Description: "Vouch for a giveaway you won",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "addvouch",
			Description: "Record a vouch on a winner's behalf",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The winner",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "removevouch",
			Description: "Remove a vouch and block it from being re-added",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Whose vouch to remove",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "id",
					Description: "Giveaway ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "setvouchchannel",
			Description: "Set the channel where vouches are collected",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "channel",
					Description: "The vouch channel",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "vouchchannel",
			Description: "Show the channel where vouches are collected",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "help",
			Description: "Show what each giveaway command does",
		},
	},
}

// adminSubcommands require Manage Server; everything else is open.
var adminSubcommands = map[string]bool{
	"start":           true,
	"end":             true,
	"reroll":          true,
	"delete":          true,
	"adjustwins":      true,
	"manual":          true,
	"addvouch":        true,
	"removevouch":     true,
	"setvouchchannel": true,
}

func GWHandler(b *giveawaybot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		sub := ""
		if data.SubCommandName != nil {
			sub = *data.SubCommandName
		}

		if e.GuildID() == nil {
			return ephemeralError(e, "Giveaways only work in servers.")
		}
		if adminSubcommands[sub] && !e.Member().Permissions.Has(discord.PermissionManageGuild) {
			return ephemeralError(e, "You need the **Manage Server** permission for that.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		switch sub {
		case "start":
			return handleStart(ctx, b, e)
		case "end":
			return handleEnd(ctx, b, e)
		case "reroll":
			return handleReroll(ctx, b, e)
		case "delete":
			return handleDelete(ctx, b, e)
		case "adjustwins":
			return handleAdjustWins(ctx, b, e)
		case "manual":
			return handleManual(ctx, b, e)
		case "list":
			return handleList(ctx, b, e)
		case "wins":
			return handleWins(ctx, b, e)
		case "vouches":
			return handleVouches(ctx, b, e)
		case "leaderboard":
			return handleLeaderboard(ctx, b, e)
		case "vouch":
			return handleVouch(ctx, b, e)
		case "addvouch":
			return handleAddVouch(ctx, b, e)
		case "removevouch":
			return handleRemoveVouch(ctx, b, e)
		case "setvouchchannel":
			return handleSetVouchChannel(ctx, b, e)
		case "vouchchannel":
			return handleVouchChannel(ctx, b, e)
		case "help":
			return handleHelp(e)
		default:
			return ephemeralError(e, fmt.Sprintf("Unknown subcommand %q.", sub))
		}
	}
}

// PrizeAutocompleteHandler fuzzy-matches existing prize names in the guild
// so manual wins attach to the right giveaway.
func PrizeAutocompleteHandler(b *giveawaybot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "prize" || e.GuildID() == nil {
			return e.AutocompleteResult(nil)
		}

		query := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				query = strings.TrimSpace(s)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		giveaways, err := b.GiveawayManager.List(ctx, *e.GuildID())
		if err != nil {
			slog.Error("Prize autocomplete lookup failed", slog.Any("error", err))
			return e.AutocompleteResult(nil)
		}

		seen := make(map[string]bool, len(giveaways))
		prizes := make([]string, 0, len(giveaways))
		for _, g := range giveaways {
			if !seen[g.Prize] {
				seen[g.Prize] = true
				prizes = append(prizes, g.Prize)
			}
		}

		var matched []string
		if query == "" {
			matched = prizes
		} else {
			for _, m := range fuzzy.Find(query, prizes) {
				matched = append(matched, m.Str)
			}
		}

		choices := make([]discord.AutocompleteChoice, 0, 25)
		for _, prize := range matched {
			if len(choices) == 25 {
				break
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  prize,
				Value: prize,
			})
		}
		return e.AutocompleteResult(choices)
	}
}

func ephemeralError(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{utils.ErrorEmbed(message)},
		Flags:  discord.MessageFlagEphemeral,
	})
}

func ephemeralSuccess(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{utils.SuccessEmbed(message)},
		Flags:  discord.MessageFlagEphemeral,
	})
}
