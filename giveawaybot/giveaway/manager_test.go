package giveaway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
)

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		prize    string
		winners  int
		duration time.Duration
	}{
		{name: "zero winners", prize: "Nitro", winners: 0, duration: time.Minute},
		{name: "too many winners", prize: "Nitro", winners: MaxWinners + 1, duration: time.Minute},
		{name: "empty prize", prize: "", winners: 1, duration: time.Minute},
		{name: "too short", prize: "Nitro", winners: 1, duration: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.manager.Create(ctx, testGuild, 200, 300, tt.prize, tt.winners, tt.duration)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	g, err := env.manager.Create(ctx, testGuild, 200, 300, "Nitro", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, g.Running())
	assert.NotZero(t, g.ID)
}

func TestEnterLeave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1)

	require.NoError(t, env.manager.Enter(ctx, g.ID, alice))
	assert.ErrorIs(t, env.manager.Enter(ctx, g.ID, alice), ErrAlreadyEntered)

	count, err := env.manager.EntrantCount(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, env.manager.Leave(ctx, g.ID, alice))
	assert.ErrorIs(t, env.manager.Leave(ctx, g.ID, alice), ErrNotEntered)

	assert.ErrorIs(t, env.manager.Enter(ctx, 9999, alice), ErrNotFound)

	_, err = env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	assert.ErrorIs(t, env.manager.Enter(ctx, g.ID, bob), ErrNotRunning)
}

func TestEnterBlockedByUnvouchedWin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	won := env.startGiveaway(t, 1, alice)
	_, err := env.manager.Close(ctx, won.ID, "test")
	require.NoError(t, err)
	require.Equal(t, 1, env.winCount(t, alice))

	next := env.startGiveaway(t, 1)
	assert.ErrorIs(t, env.manager.Enter(ctx, next.ID, alice), ErrNotEligible)

	// One vouch balances the one win; equal counts permit entry.
	svc := NewVouchService(env.repo, env.vouches, env.guildCfg, 0)
	require.NoError(t, svc.Record(ctx, testGuild, alice, won.ID))
	assert.NoError(t, env.manager.Enter(ctx, next.ID, alice))
}

func TestCloseDrawsWinners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 2, alice, bob, carol)

	winners, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	require.Len(t, winners, 2)

	entrants := map[snowflake.ID]bool{alice: true, bob: true, carol: true}
	seen := map[snowflake.ID]bool{}
	for _, w := range winners {
		assert.True(t, entrants[w], "winner %d was not an entrant", w)
		assert.False(t, seen[w], "winner %d drawn twice", w)
		seen[w] = true
		assert.Equal(t, 1, env.winCount(t, w))
	}

	got, err := env.manager.Giveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)

	_, err = env.manager.Close(ctx, g.ID, "test")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestCloseRequestsMoreWinnersThanEntrants(t *testing.T) {
	env := newTestEnv(t)
	g := env.startGiveaway(t, 5, alice, bob)

	winners, err := env.manager.Close(context.Background(), g.ID, "test")
	require.NoError(t, err)
	assert.Len(t, winners, 2)
}

func TestCloseNoEntrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1)

	winners, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	assert.Empty(t, winners)

	got, err := env.manager.Giveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, got.Status)
}

func TestCloseRaceSelectsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1, alice, bob, carol)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.manager.Close(ctx, g.ID, "race")
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotRunning)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one closer should draw winners")

	winners, err := env.manager.Winners(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, winners, 1)
}

func TestRerollExcludesAllFormerWinners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1, alice, bob, carol)

	first, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	require.Len(t, first, 1)

	former := map[snowflake.ID]bool{first[0]: true}
	for i := 0; i < 2; i++ {
		removed, added, err := env.manager.Reroll(ctx, g.ID, 1, 0)
		require.NoError(t, err)
		require.Len(t, removed, 1)
		require.Len(t, added, 1)

		assert.True(t, former[removed[0]], "removed user %d was never a winner", removed[0])
		assert.False(t, former[added[0]], "replacement %d had already won", added[0])
		former[added[0]] = true

		assert.Equal(t, 0, env.winCount(t, removed[0]))
		assert.Equal(t, 1, env.winCount(t, added[0]))
	}

	// All three entrants have now won once; nobody is left to draw and the
	// removal still commits.
	removed, added, err := env.manager.Reroll(ctx, g.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNoEligiblePool)
	assert.Len(t, removed, 1)
	assert.Empty(t, added)

	winners, err := env.manager.Winners(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, winners)

	_, _, err = env.manager.Reroll(ctx, g.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNoWinners)
}

func TestRerollTargetUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 2, alice, bob, carol, dave)

	winners, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	require.Len(t, winners, 2)

	var loser snowflake.ID
	for _, id := range []snowflake.ID{alice, bob, carol, dave} {
		if id != winners[0] && id != winners[1] {
			loser = id
			break
		}
	}

	_, _, err = env.manager.Reroll(ctx, g.ID, 0, loser)
	assert.ErrorIs(t, err, ErrNotAWinner)

	removed, added, err := env.manager.Reroll(ctx, g.ID, 0, winners[0])
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{winners[0]}, removed)
	require.Len(t, added, 1)
	assert.NotEqual(t, winners[0], added[0])
	assert.NotEqual(t, winners[1], added[0])
}

func TestRerollOnRunningGiveaway(t *testing.T) {
	env := newTestEnv(t)
	g := env.startGiveaway(t, 1, alice)

	_, _, err := env.manager.Reroll(context.Background(), g.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNotEnded)
}

func TestRerollWithNoEntrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1)

	_, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	require.NoError(t, env.manager.AdjustWin(ctx, g.ID, alice, 1))

	removed, added, err := env.manager.Reroll(ctx, g.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNoEntrants)
	assert.Equal(t, []snowflake.ID{alice}, removed)
	assert.Empty(t, added)
	assert.Equal(t, 0, env.winCount(t, alice))
}

func TestDeleteUnwindsEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 2, alice, bob)

	winners, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)
	require.Len(t, winners, 2)

	svc := NewVouchService(env.repo, env.vouches, env.guildCfg, 0)
	require.NoError(t, svc.Record(ctx, testGuild, winners[0], g.ID))

	require.NoError(t, env.manager.Delete(ctx, g.ID))

	_, err = env.manager.Giveaway(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, env.winCount(t, alice))
	assert.Equal(t, 0, env.winCount(t, bob))

	vouches, err := svc.UserVouches(ctx, testGuild, winners[0])
	require.NoError(t, err)
	assert.Empty(t, vouches)

	entrants, err := env.repo.Entrants(ctx, nil, g.ID)
	require.NoError(t, err)
	assert.Empty(t, entrants)

	assert.ErrorIs(t, env.manager.Delete(ctx, g.ID), ErrNotFound)
}

func TestAdjustWinIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	g := env.startGiveaway(t, 1)
	_, err := env.manager.Close(ctx, g.ID, "test")
	require.NoError(t, err)

	assert.ErrorIs(t, env.manager.AdjustWin(ctx, g.ID, alice, 2), ErrValidation)
	assert.ErrorIs(t, env.manager.AdjustWin(ctx, 9999, alice, 1), ErrNotFound)

	require.NoError(t, env.manager.AdjustWin(ctx, g.ID, alice, 1))
	require.NoError(t, env.manager.AdjustWin(ctx, g.ID, alice, 1))
	assert.Equal(t, 1, env.winCount(t, alice))
	assert.Equal(t, 1, env.winnerRows(t, alice))

	require.NoError(t, env.manager.AdjustWin(ctx, g.ID, alice, -1))
	require.NoError(t, env.manager.AdjustWin(ctx, g.ID, alice, -1))
	assert.Equal(t, 0, env.winCount(t, alice))
	assert.Equal(t, 0, env.winnerRows(t, alice))
}

func TestWinCountMatchesWinnerRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g1 := env.startGiveaway(t, 1, alice)
	g2 := env.startGiveaway(t, 1, alice)
	_, err := env.manager.Close(ctx, g1.ID, "test")
	require.NoError(t, err)
	_, err = env.manager.Close(ctx, g2.ID, "test")
	require.NoError(t, err)

	require.NoError(t, env.manager.AdjustWin(ctx, g1.ID, alice, 1)) // no-op, already a winner
	require.NoError(t, env.manager.AdjustWin(ctx, g2.ID, alice, -1))
	require.NoError(t, env.manager.AdjustWin(ctx, g2.ID, alice, 1))

	assert.Equal(t, env.winnerRows(t, alice), env.winCount(t, alice))
	assert.Equal(t, 2, env.winCount(t, alice))
}

func TestConcurrentAdjustWinStaysConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g1 := env.startGiveaway(t, 1)
	g2 := env.startGiveaway(t, 1)
	for _, g := range []*models.Giveaway{g1, g2} {
		_, err := env.manager.Close(ctx, g.ID, "test")
		require.NoError(t, err)
	}

	const callers = 10
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		giveawayID := g1.ID
		if i%2 == 1 {
			giveawayID = g2.ID
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, env.manager.AdjustWin(ctx, id, alice, 1))
		}(giveawayID)
	}
	wg.Wait()

	// However the grants interleave, the aggregate equals the winner rows.
	assert.Equal(t, 2, env.winnerRows(t, alice))
	assert.Equal(t, env.winnerRows(t, alice), env.winCount(t, alice))

	for i := 0; i < callers; i++ {
		giveawayID := g1.ID
		if i%2 == 1 {
			giveawayID = g2.ID
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, env.manager.AdjustWin(ctx, id, alice, -1))
		}(giveawayID)
	}
	wg.Wait()

	assert.Equal(t, 0, env.winnerRows(t, alice))
	assert.Equal(t, 0, env.winCount(t, alice))
}

func TestRecordManualWin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.manager.RecordManualWin(ctx, testGuild, "", alice)
	assert.ErrorIs(t, err, ErrValidation)

	g, err := env.manager.RecordManualWin(ctx, testGuild, "Steam Key", alice)
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStatusEnded, g.Status)
	assert.Equal(t, 1, env.winCount(t, alice))

	// Same prize reuses the giveaway instead of minting a new one.
	again, err := env.manager.RecordManualWin(ctx, testGuild, "Steam Key", bob)
	require.NoError(t, err)
	assert.Equal(t, g.ID, again.ID)
	assert.Equal(t, 1, env.winCount(t, bob))

	rows, err := env.db.NewSelect().Model((*models.Giveaway)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestGuildGiveawayScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g := env.startGiveaway(t, 1, alice)

	got, err := env.manager.GuildGiveaway(ctx, testGuild, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)

	_, err = env.manager.GuildGiveaway(ctx, testGuild+1, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.manager.GuildGiveaway(ctx, testGuild, g.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopWinnersOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	g1 := env.startGiveaway(t, 1)
	_, err := env.manager.Close(ctx, g1.ID, "test")
	require.NoError(t, err)
	g2 := env.startGiveaway(t, 1)
	_, err = env.manager.Close(ctx, g2.ID, "test")
	require.NoError(t, err)

	require.NoError(t, env.manager.AdjustWin(ctx, g1.ID, alice, 1))
	require.NoError(t, env.manager.AdjustWin(ctx, g2.ID, alice, 1))
	require.NoError(t, env.manager.AdjustWin(ctx, g1.ID, bob, 1))

	top, err := env.manager.TopWinners(ctx, testGuild, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, alice, top[0].UserID)
	assert.Equal(t, 2, top[0].Wins)
	assert.Equal(t, bob, top[1].UserID)
	assert.Equal(t, 1, top[1].Wins)
}
