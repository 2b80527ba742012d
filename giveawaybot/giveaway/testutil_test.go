package giveaway

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/winvouch/giveaway-bot/giveawaybot/database"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"
	"github.com/winvouch/giveaway-bot/giveawaybot/database/repositories"
)

const (
	testGuild = snowflake.ID(100)
	alice     = snowflake.ID(1)
	bob       = snowflake.ID(2)
	carol     = snowflake.ID(3)
	dave      = snowflake.ID(4)
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", "file::memory:?_fk=1")
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.CreateSchema(context.Background(), db))
	return db
}

type testEnv struct {
	db       *bun.DB
	repo     repositories.GiveawayRepository
	vouches  repositories.VouchRepository
	guildCfg repositories.GuildConfigRepository
	manager  *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := repositories.NewGiveawayRepository(db)
	vouches := repositories.NewVouchRepository(db)

	return &testEnv{
		db:       db,
		repo:     repo,
		vouches:  vouches,
		guildCfg: repositories.NewGuildConfigRepository(db),
		manager:  NewManager(repo, vouches, NewSeededPicker(42)),
	}
}

// startGiveaway creates a running giveaway and enters the given users.
func (env *testEnv) startGiveaway(t *testing.T, winners int, entrants ...snowflake.ID) *models.Giveaway {
	t.Helper()

	g, err := env.manager.Create(context.Background(), testGuild, 200, 300, "Nitro", winners, time.Minute)
	require.NoError(t, err)
	for _, userID := range entrants {
		require.NoError(t, env.manager.Enter(context.Background(), g.ID, userID))
	}
	return g
}

func (env *testEnv) winCount(t *testing.T, userID snowflake.ID) int {
	t.Helper()

	n, err := env.repo.WinCount(context.Background(), testGuild, userID)
	require.NoError(t, err)
	return n
}

func (env *testEnv) winnerRows(t *testing.T, userID snowflake.ID) int {
	t.Helper()

	n, err := env.db.NewSelect().
		Model((*models.Winner)(nil)).
		Where("w.user_id = ?", userID).
		Count(context.Background())
	require.NoError(t, err)
	return n
}
