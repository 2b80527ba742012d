package giveaway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
)

const (
	MinWinners  = 1
	MaxWinners  = 50
	MinDuration = 10 * time.Second
)

// Manager owns the giveaway state machine. It is the sole writer of
// giveaway, entrant, winner and win-count state; every mutating operation
// runs as one transaction so partial state is never observable.
type Manager struct {
	repo     repositories.GiveawayRepository
	vouches  repositories.VouchRepository
	gate     *Gate
	picker   *Picker
	notifier Notifier
}

func NewManager(repo repositories.GiveawayRepository, vouches repositories.VouchRepository, picker *Picker) *Manager {
	return &Manager{
		repo:     repo,
		vouches:  vouches,
		gate:     NewGate(repo, vouches),
		picker:   picker,
		notifier: NopNotifier{},
	}
}

// SetNotifier installs the presentation-layer event sink. Must be called
// before the scheduler starts if events are wanted.
func (m *Manager) SetNotifier(n Notifier) {
	if n == nil {
		n = NopNotifier{}
	}
	m.notifier = n
}

func (m *Manager) Gate() *Gate {
	return m.gate
}

// Create validates and persists a new running giveaway.
func (m *Manager) Create(ctx context.Context, guildID, channelID, hostID snowflake.ID, prize string, winners int, duration time.Duration) (*models.Giveaway, error) {
	if winners < MinWinners || winners > MaxWinners {
		return nil, fmt.Errorf("%w: winners must be between %d and %d", ErrValidation, MinWinners, MaxWinners)
	}
	if duration < MinDuration {
		return nil, fmt.Errorf("%w: duration must be at least %s", ErrValidation, MinDuration)
	}
	if prize == "" {
		return nil, fmt.Errorf("%w: prize must not be empty", ErrValidation)
	}

	g := &models.Giveaway{
		GuildID:          guildID,
		ChannelID:        channelID,
		HostID:           hostID,
		Prize:            prize,
		WinnersRequested: winners,
		Deadline:         time.Now().UTC().Add(duration),
		Status:           models.GiveawayStatusRunning,
	}
	if err := m.repo.Create(ctx, nil, g); err != nil {
		return nil, err
	}

	slog.Info("Giveaway created",
		slog.Int64("giveaway_id", g.ID),
		slog.String("prize", g.Prize),
		slog.Int("winners", g.WinnersRequested),
		slog.Time("deadline", g.Deadline))
	return g, nil
}

// Enter opts a user into a running giveaway, subject to the vouch gate.
func (m *Manager) Enter(ctx context.Context, giveawayID int64, userID snowflake.ID) error {
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return err
	}
	if !g.Running() {
		return ErrNotRunning
	}

	ok, err := m.gate.CanEnter(ctx, g.GuildID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotEligible
	}

	added, err := m.repo.AddEntrant(ctx, giveawayID, userID)
	if err != nil {
		return err
	}
	if !added {
		return ErrAlreadyEntered
	}
	return nil
}

// Leave opts a user out. Leaving a giveaway the user never entered is
// harmless and reported as ErrNotEntered.
func (m *Manager) Leave(ctx context.Context, giveawayID int64, userID snowflake.ID) error {
	if _, err := m.get(ctx, giveawayID); err != nil {
		return err
	}
	removed, err := m.repo.RemoveEntrant(ctx, giveawayID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotEntered
	}
	return nil
}

// Close transitions a giveaway running -> ended and draws winners. The
// transition is a conditional update inside the same transaction as the
// entrant-pool read, so when the scheduler and a manual close race, exactly
// one caller draws; the other returns ErrNotRunning having changed nothing.
func (m *Manager) Close(ctx context.Context, giveawayID int64, reason string) ([]snowflake.ID, error) {
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	won, err := m.repo.MarkEnded(ctx, tx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrNotRunning
	}

	entrants, err := m.repo.Entrants(ctx, tx, giveawayID)
	if err != nil {
		return nil, err
	}

	var winners []snowflake.ID
	if len(entrants) > 0 {
		winners = m.picker.Pick(entrants, g.WinnersRequested)
		if err = m.repo.AddWinners(ctx, tx, g.GuildID, giveawayID, winners); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit close: %w", err)
	}

	g.Status = models.GiveawayStatusEnded
	slog.Info("Giveaway closed",
		slog.Int64("giveaway_id", giveawayID),
		slog.String("reason", reason),
		slog.Int("entrants", len(entrants)),
		slog.Int("winners", len(winners)))

	m.notifier.GiveawayClosed(ctx, ClosedEvent{
		Giveaway:     g,
		Winners:      winners,
		EntrantCount: len(entrants),
		Reason:       reason,
	})
	return winners, nil
}

// Reroll removes winners from an ended giveaway and draws replacements from
// entrants who have never won it, across all rerolls. If targetUser is
// non-zero it is the removal set; otherwise the last removeCount winners by
// insertion order are removed (count clamped to the winner set).
//
// The removal commits even when no replacement pool exists: callers get the
// removed set back together with ErrNoEntrants or ErrNoEligiblePool, and
// the giveaway keeps fewer winners. That is deliberate; a moderator
// removing a winner wants the removal regardless.
func (m *Manager) Reroll(ctx context.Context, giveawayID int64, removeCount int, targetUser snowflake.ID) (removed, added []snowflake.ID, err error) {
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return nil, nil, err
	}
	if g.Running() {
		return nil, nil, ErrNotEnded
	}

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	winners, err := m.repo.Winners(ctx, tx, giveawayID)
	if err != nil {
		return nil, nil, err
	}
	if len(winners) == 0 {
		return nil, nil, ErrNoWinners
	}

	var toRemove []snowflake.ID
	if targetUser != 0 {
		if !contains(winners, targetUser) {
			return nil, nil, ErrNotAWinner
		}
		toRemove = []snowflake.ID{targetUser}
	} else {
		k := removeCount
		if k < 1 {
			k = 1
		}
		if k > len(winners) {
			k = len(winners)
		}
		toRemove = winners[len(winners)-k:]
	}

	removed, err = m.repo.RemoveWinners(ctx, tx, g.GuildID, giveawayID, toRemove)
	if err != nil {
		return removed, nil, err
	}

	entrants, err := m.repo.Entrants(ctx, tx, giveawayID)
	if err != nil {
		return removed, nil, err
	}
	if len(entrants) == 0 {
		if err = tx.Commit(); err != nil {
			return removed, nil, fmt.Errorf("failed to commit reroll: %w", err)
		}
		return removed, nil, ErrNoEntrants
	}

	history, err := m.repo.HistoricalWinners(ctx, tx, giveawayID)
	if err != nil {
		return removed, nil, err
	}
	pool := Exclude(entrants, history)
	if len(pool) == 0 {
		if err = tx.Commit(); err != nil {
			return removed, nil, fmt.Errorf("failed to commit reroll: %w", err)
		}
		return removed, nil, ErrNoEligiblePool
	}

	added = m.picker.Pick(pool, len(removed))
	if err = m.repo.AddWinners(ctx, tx, g.GuildID, giveawayID, added); err != nil {
		return removed, nil, err
	}

	if err = tx.Commit(); err != nil {
		return removed, nil, fmt.Errorf("failed to commit reroll: %w", err)
	}

	slog.Info("Giveaway rerolled",
		slog.Int64("giveaway_id", giveawayID),
		slog.Int("removed", len(removed)),
		slog.Int("added", len(added)))

	m.notifier.GiveawayRerolled(ctx, RerolledEvent{
		Giveaway: g,
		Removed:  removed,
		Added:    added,
	})
	return removed, added, nil
}

// Delete removes a giveaway and everything attached to it in one
// transaction: win counts are decremented for current winners, vouches and
// vouch blocks are cleared explicitly (blocks have no cascade), and the
// giveaway row cascade drops entrants, winners and winner history.
func (m *Manager) Delete(ctx context.Context, giveawayID int64) error {
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return err
	}

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	winners, err := m.repo.Winners(ctx, tx, giveawayID)
	if err != nil {
		return err
	}
	if _, err = m.repo.RemoveWinners(ctx, tx, g.GuildID, giveawayID, winners); err != nil {
		return err
	}
	if err = m.vouches.DeleteForGiveaway(ctx, tx, giveawayID); err != nil {
		return err
	}
	deleted, err := m.repo.DeleteGiveaway(ctx, tx, giveawayID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	slog.Info("Giveaway deleted",
		slog.Int64("giveaway_id", giveawayID),
		slog.Int("winners_unwound", len(winners)))
	return nil
}

// AdjustWin manually grants (+1) or revokes (-1) a win, bypassing
// selection. Both directions are idempotent: granting to an existing winner
// or revoking from a non-winner leaves all state unchanged.
func (m *Manager) AdjustWin(ctx context.Context, giveawayID int64, userID snowflake.ID, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("%w: delta must be +1 or -1", ErrValidation)
	}
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return err
	}

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if delta > 0 {
		err = m.repo.AddWinners(ctx, tx, g.GuildID, giveawayID, []snowflake.ID{userID})
	} else {
		_, err = m.repo.RemoveWinners(ctx, tx, g.GuildID, giveawayID, []snowflake.ID{userID})
	}
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit win adjustment: %w", err)
	}

	slog.Info("Win adjusted",
		slog.Int64("giveaway_id", giveawayID),
		slog.String("user_id", userID.String()),
		slog.Int("delta", delta))
	return nil
}

// RecordManualWin records an off-platform award: it reuses an ended
// giveaway with the same prize in the guild or creates one, then grants the
// win through the usual paired path. The lookup-or-create and the grant run
// in one transaction, so a failed grant never strands an empty giveaway.
func (m *Manager) RecordManualWin(ctx context.Context, guildID snowflake.ID, prize string, userID snowflake.ID) (*models.Giveaway, error) {
	if prize == "" {
		return nil, fmt.Errorf("%w: prize must not be empty", ErrValidation)
	}

	tx, err := m.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	g, err := m.repo.GetByGuildAndPrize(ctx, tx, guildID, prize)
	if errors.Is(err, repositories.ErrGiveawayNotFound) {
		g = &models.Giveaway{
			GuildID:          guildID,
			Prize:            prize,
			WinnersRequested: 1,
			Deadline:         time.Now().UTC(),
			Status:           models.GiveawayStatusEnded,
		}
		if err = m.repo.Create(ctx, tx, g); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err = m.repo.AddWinners(ctx, tx, guildID, g.ID, []snowflake.ID{userID}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit manual win: %w", err)
	}

	slog.Info("Manual win recorded",
		slog.Int64("giveaway_id", g.ID),
		slog.String("user_id", userID.String()),
		slog.String("prize", prize))
	return g, nil
}

// Read queries for the presentation layer.

func (m *Manager) Giveaway(ctx context.Context, giveawayID int64) (*models.Giveaway, error) {
	return m.get(ctx, giveawayID)
}

// GuildGiveaway resolves a giveaway only when it belongs to the guild.
// Caller-supplied IDs cross guild boundaries freely, so every command that
// takes a raw ID goes through this; a giveaway from another guild is
// reported as ErrNotFound rather than acted on.
func (m *Manager) GuildGiveaway(ctx context.Context, guildID snowflake.ID, giveawayID int64) (*models.Giveaway, error) {
	g, err := m.get(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if g.GuildID != guildID {
		return nil, ErrNotFound
	}
	return g, nil
}

func (m *Manager) List(ctx context.Context, guildID snowflake.ID) ([]*models.Giveaway, error) {
	return m.repo.ListByGuild(ctx, guildID)
}

func (m *Manager) Winners(ctx context.Context, giveawayID int64) ([]snowflake.ID, error) {
	return m.repo.Winners(ctx, nil, giveawayID)
}

func (m *Manager) EntrantCount(ctx context.Context, giveawayID int64) (int, error) {
	return m.repo.EntrantCount(ctx, giveawayID)
}

func (m *Manager) TopWinners(ctx context.Context, guildID snowflake.ID, limit int) ([]repositories.TopWinner, error) {
	return m.repo.TopWinners(ctx, guildID, limit)
}

func (m *Manager) UserWins(ctx context.Context, guildID, userID snowflake.ID) ([]repositories.WonGiveaway, error) {
	return m.repo.WonGiveaways(ctx, guildID, userID)
}

func (m *Manager) get(ctx context.Context, giveawayID int64) (*models.Giveaway, error) {
	g, err := m.repo.GetByID(ctx, giveawayID)
	if errors.Is(err, repositories.ErrGiveawayNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func contains(ids []snowflake.ID, id snowflake.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
