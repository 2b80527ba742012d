package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"log/slog"

	"github.com/winvouch/giveaway-bot/giveawaybot/database/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Cheap reachability probe before handing the config to the pool, so a
	// bad host fails fast instead of on the first query.
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	var conn net.Conn
	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(buildConnString(cfg) + "&sslmode=disable")))
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	return &DB{pool: pool, bunDB: bunDB}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates all required tables and indexes.
func (db *DB) InitializeSchema(ctx context.Context) error {
	if err := CreateSchema(ctx, db.bunDB); err != nil {
		return err
	}
	slog.Info("Database schema initialized",
		slog.String("type", "db"))
	return nil
}

// CreateSchema builds the giveaway schema on any bun dialect. giveaways
// cascades to entrants, winners, winner_history and vouches; vouch_blocks
// and win_counts are intentionally unreferenced and must be maintained
// explicitly.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	cascade := `("giveaway_id") REFERENCES "giveaways" ("id") ON DELETE CASCADE`

	tables := []struct {
		model any
		fk    string
	}{
		{model: (*models.Giveaway)(nil)},
		{model: (*models.Entrant)(nil), fk: cascade},
		{model: (*models.Winner)(nil), fk: cascade},
		{model: (*models.WinnerHistory)(nil), fk: cascade},
		{model: (*models.WinCount)(nil)},
		{model: (*models.Vouch)(nil), fk: cascade},
		{model: (*models.VouchBlock)(nil)},
		{model: (*models.GuildConfig)(nil)},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		if t.fk != "" {
			q = q.ForeignKey(t.fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_entrants_giveaway_user ON entrants(giveaway_id, user_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_winners_giveaway_user ON winners(giveaway_id, user_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_winner_history_giveaway_user ON winner_history(giveaway_id, user_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_vouches_guild_user_giveaway ON vouches(guild_id, user_id, giveaway_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_vouch_blocks_guild_user_giveaway ON vouch_blocks(guild_id, user_id, giveaway_id);",
		"CREATE INDEX IF NOT EXISTS idx_giveaways_status_deadline ON giveaways(status, deadline);",
		"CREATE INDEX IF NOT EXISTS idx_giveaways_guild ON giveaways(guild_id);",
		"CREATE INDEX IF NOT EXISTS idx_vouches_guild_user ON vouches(guild_id, user_id);",
		"CREATE INDEX IF NOT EXISTS idx_win_counts_guild_wins ON win_counts(guild_id, wins);",
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
