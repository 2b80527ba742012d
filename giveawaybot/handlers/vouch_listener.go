package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"

	"github.com/winvouch/giveaway-bot/giveawaybot/giveaway"
)

const vouchListenTimeout = 10 * time.Second

// VouchListener watches the configured vouch channel and records a vouch
// when a winner posts a message containing the vouch keyword. With exactly
// one outstanding win the vouch is attributed automatically; with several,
// the user is told to pick one with /gw vouch.
type VouchListener struct {
	svc *giveaway.VouchService
}

func NewVouchListener(svc *giveaway.VouchService) *VouchListener {
	return &VouchListener{svc: svc}
}

func (l *VouchListener) OnMessageCreate(event *events.MessageCreate) {
	msg := event.Message
	if msg.Author.Bot || msg.GuildID == nil {
		return
	}
	if !strings.Contains(strings.ToLower(msg.Content), "vouch") {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), vouchListenTimeout)
	defer cancel()

	guildID := *msg.GuildID
	vouchChannel, err := l.svc.VouchChannel(ctx, guildID)
	if err != nil {
		slog.Error("Failed to resolve vouch channel", slog.Any("error", err))
		return
	}
	if vouchChannel == 0 || msg.ChannelID != vouchChannel {
		return
	}

	outstanding, err := l.svc.Outstanding(ctx, guildID, msg.Author.ID)
	if err != nil {
		slog.Error("Outstanding win lookup failed", slog.Any("error", err))
		return
	}

	switch len(outstanding) {
	case 0:
		l.reply(event, "You have no wins left to vouch for.")
	case 1:
		if err := l.svc.Record(ctx, guildID, msg.Author.ID, outstanding[0].GiveawayID); err != nil {
			switch {
			case errors.Is(err, giveaway.ErrAlreadyVouched):
				l.reply(event, "You already vouched for that giveaway.")
				return
			case errors.Is(err, giveaway.ErrVouchBlocked):
				l.reply(event, "❌ Your vouch for that giveaway has been blocked by a moderator.")
				return
			}
			slog.Error("Failed to record vouch",
				slog.Int64("giveaway_id", outstanding[0].GiveawayID),
				slog.Any("error", err))
			return
		}
		l.react(event, "✅")
		l.reply(event, fmt.Sprintf("✅ Vouch recorded for **%s**. Thanks!", outstanding[0].Prize))
	default:
		var sb strings.Builder
		sb.WriteString("You have several wins pending a vouch. Use `/gw vouch` with one of:\n")
		for _, w := range outstanding {
			fmt.Fprintf(&sb, "• `#%d` — %s\n", w.GiveawayID, w.Prize)
		}
		l.reply(event, sb.String())
	}
}

func (l *VouchListener) reply(event *events.MessageCreate, content string) {
	if _, err := event.Client().Rest().CreateMessage(event.ChannelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		SetMessageReferenceByID(event.MessageID).
		Build()); err != nil {
		slog.Warn("Failed to reply in vouch channel", slog.Any("error", err))
	}
}

func (l *VouchListener) react(event *events.MessageCreate, emoji string) {
	if err := event.Client().Rest().AddReaction(event.ChannelID, event.MessageID, emoji); err != nil {
		slog.Warn("Failed to add vouch reaction", slog.Any("error", err))
	}
}
