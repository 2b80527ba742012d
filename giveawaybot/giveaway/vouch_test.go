package giveaway

import (
	"context"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVouchFixture(t *testing.T) (*testEnv, *VouchService, int64) {
	t.Helper()

	env := newTestEnv(t)
	svc := NewVouchService(env.repo, env.vouches, env.guildCfg, 0)

	g := env.startGiveaway(t, 1, alice)
	winners, err := env.manager.Close(context.Background(), g.ID, "test")
	require.NoError(t, err)
	require.Equal(t, []snowflake.ID{alice}, winners)

	return env, svc, g.ID
}

func TestVouchRecord(t *testing.T) {
	_, svc, giveawayID := newVouchFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Record(ctx, testGuild, bob, giveawayID), ErrNotAWinner)

	require.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))
	assert.ErrorIs(t, svc.Record(ctx, testGuild, alice, giveawayID), ErrAlreadyVouched)

	vouches, err := svc.UserVouches(ctx, testGuild, alice)
	require.NoError(t, err)
	require.Len(t, vouches, 1)
	assert.Equal(t, giveawayID, vouches[0].GiveawayID)
}

func TestVouchGuildScoping(t *testing.T) {
	_, svc, giveawayID := newVouchFixture(t)
	ctx := context.Background()

	otherGuild := testGuild + 1

	// A giveaway ID from another guild is treated as nonexistent.
	assert.ErrorIs(t, svc.Record(ctx, otherGuild, alice, giveawayID), ErrNotFound)
	assert.ErrorIs(t, svc.Block(ctx, otherGuild, alice, giveawayID), ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, otherGuild, alice, giveawayID), ErrNotFound)

	assert.ErrorIs(t, svc.Record(ctx, 0, alice, giveawayID), ErrNotFound)

	// The owning guild still works, and a single win yields a single vouch.
	require.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))

	vouches, err := svc.UserVouches(ctx, testGuild, alice)
	require.NoError(t, err)
	assert.Len(t, vouches, 1)

	vouches, err = svc.UserVouches(ctx, otherGuild, alice)
	require.NoError(t, err)
	assert.Empty(t, vouches)
}

func TestVouchBlock(t *testing.T) {
	_, svc, giveawayID := newVouchFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))
	require.NoError(t, svc.Block(ctx, testGuild, alice, giveawayID))

	// The block removed the vouch and forbids re-adding it.
	vouches, err := svc.UserVouches(ctx, testGuild, alice)
	require.NoError(t, err)
	assert.Empty(t, vouches)
	assert.ErrorIs(t, svc.Record(ctx, testGuild, alice, giveawayID), ErrVouchBlocked)

	blocked, err := svc.IsBlocked(ctx, testGuild, alice, giveawayID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestVouchRemoveWithoutBlock(t *testing.T) {
	_, svc, giveawayID := newVouchFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Remove(ctx, testGuild, alice, giveawayID), ErrNotFound)

	require.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))
	require.NoError(t, svc.Remove(ctx, testGuild, alice, giveawayID))

	// Unlike a block, a plain removal leaves the door open.
	assert.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))
}

func TestVouchOutstanding(t *testing.T) {
	_, svc, giveawayID := newVouchFixture(t)
	ctx := context.Background()

	outstanding, err := svc.Outstanding(ctx, testGuild, alice)
	require.NoError(t, err)
	require.Len(t, outstanding, 1)
	assert.Equal(t, giveawayID, outstanding[0].GiveawayID)

	require.NoError(t, svc.Record(ctx, testGuild, alice, giveawayID))

	outstanding, err = svc.Outstanding(ctx, testGuild, alice)
	require.NoError(t, err)
	assert.Empty(t, outstanding)
}

func TestVouchChannelFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	svc := NewVouchService(env.repo, env.vouches, env.guildCfg, snowflake.ID(777))

	channel, err := svc.VouchChannel(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(777), channel)

	require.NoError(t, svc.SetVouchChannel(ctx, testGuild, snowflake.ID(888)))
	channel, err = svc.VouchChannel(ctx, testGuild)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(888), channel)
}
