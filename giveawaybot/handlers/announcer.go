package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
)

const (
	colorEnded    = 0x5865f2
	colorRerolled = 0xe67e22
)

// Announcer renders engine events into channel announcements. It is the
// only place closure and reroll results become Discord messages; the engine
// never sees the client.
type Announcer struct {
	mu     sync.RWMutex
	client bot.Client
}

func NewAnnouncer() *Announcer {
	return &Announcer{}
}

// SetClient must be called once the gateway client exists; events arriving
// before that are logged and dropped.
func (a *Announcer) SetClient(client bot.Client) {
	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
}

var _ giveaway.Notifier = (*Announcer)(nil)

func (a *Announcer) GiveawayClosed(_ context.Context, event giveaway.ClosedEvent) {
	client := a.getClient()
	if client == nil || event.Giveaway.ChannelID == 0 {
		return
	}
	g := event.Giveaway

	var desc string
	if len(event.Winners) > 0 {
		desc = fmt.Sprintf("**Prize:** %s\n**Winners:** %s\n**Total Entries:** %d",
			g.Prize, mentions(event.Winners), event.EntrantCount)
	} else {
		desc = fmt.Sprintf("**Prize:** %s\nNo valid entries.", g.Prize)
	}

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🎉 Giveaway #%d %s", g.ID, event.Reason)).
		SetDescription(desc).
		SetColor(colorEnded).
		SetFooter("Use /gw reroll to draw again from the same entrants.", "").
		Build()

	if _, err := client.Rest().CreateMessage(g.ChannelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build()); err != nil {
		slog.Error("Failed to announce giveaway closure",
			slog.Int64("giveaway_id", g.ID),
			slog.Any("error", err))
	}

	a.disableJoinButtons(g.ChannelID, g.MessageID, embed)
}

func (a *Announcer) GiveawayRerolled(_ context.Context, event giveaway.RerolledEvent) {
	client := a.getClient()
	if client == nil || event.Giveaway.ChannelID == 0 {
		return
	}
	g := event.Giveaway

	embed := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🎲 Giveaway #%d Reroll", g.ID)).
		SetDescription(fmt.Sprintf("Removed: %s\nNew winner(s): %s",
			mentions(event.Removed), mentions(event.Added))).
		SetColor(colorRerolled).
		Build()

	if _, err := client.Rest().CreateMessage(g.ChannelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build()); err != nil {
		slog.Error("Failed to announce reroll",
			slog.Int64("giveaway_id", g.ID),
			slog.Any("error", err))
	}
}

// disableJoinButtons replaces the original giveaway message with the ended
// embed and no components, so stale Join buttons stop working visibly.
func (a *Announcer) disableJoinButtons(channelID, messageID snowflake.ID, embed discord.Embed) {
	client := a.getClient()
	if client == nil || messageID == 0 {
		return
	}
	if _, err := client.Rest().UpdateMessage(channelID, messageID, discord.NewMessageUpdateBuilder().
		SetEmbeds(embed).
		ClearContainerComponents().
		Build()); err != nil {
		slog.Warn("Failed to update original giveaway message",
			slog.String("message_id", messageID.String()),
			slog.Any("error", err))
	}
}

func (a *Announcer) getClient() bot.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

func mentions(ids []snowflake.ID) string {
	if len(ids) == 0 {
		return "🏆 None"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("<@%d>", id)
	}
	return strings.Join(parts, ", ")
}
