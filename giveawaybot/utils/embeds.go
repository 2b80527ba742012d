package utils

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

const (
	SuccessColor  = 0x57f287
	ErrorColor    = 0xed4245
	InfoColor     = 0x5865f2
	GiveawayColor = 0xf1c40f
)

// GiveawayEmbed renders the live giveaway message. The same embed is
// rebuilt on every join/leave so the entry count stays current.
func GiveawayEmbed(g *models.Giveaway, entrantCount int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🎉 Giveaway: %s", g.Prize)).
		SetDescription(fmt.Sprintf(
			"Press **Join** to enter!\n\n"+
				"**Winners:** %d\n"+
				"**Entries:** %d\n"+
				"**Ends:** <t:%d:R>\n"+
				"**Hosted by:** <@%d>",
			g.WinnersRequested, entrantCount, g.Deadline.Unix(), g.HostID)).
		SetColor(GiveawayColor).
		SetFooter(fmt.Sprintf("Giveaway #%d", g.ID), "").
		Build()
}

// GiveawayButtons returns the join/leave action row for a running giveaway.
func GiveawayButtons(giveawayID int64) discord.ContainerComponent {
	return discord.NewActionRow(
		discord.NewPrimaryButton("🎉 Join", fmt.Sprintf("/giveaway/join/%d", giveawayID)),
		discord.NewSecondaryButton("Leave", fmt.Sprintf("/giveaway/leave/%d", giveawayID)),
	)
}

func ErrorEmbed(message string) discord.Embed {
	return discord.Embed{Description: "❌ " + message, Color: ErrorColor}
}

func SuccessEmbed(message string) discord.Embed {
	return discord.Embed{Description: "✅ " + message, Color: SuccessColor}
}

func InfoEmbed(title, description string) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle(title).
		SetDescription(description).
		SetColor(InfoColor).
		Build()
}
