package giveawaybot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/winvouch/giveaway-bot/giveawaybot/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Bot      BotConfig         `toml:"bot"`
	DB       database.DBConfig `toml:"db"`
	Giveaway GiveawayConfig    `toml:"giveaway"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type GiveawayConfig struct {
	// ScanInterval is how often the deadline scheduler checks for overdue
	// giveaways, in seconds.
	ScanInterval int `toml:"scan_interval"`
	// DefaultVouchChannel is used for guilds without a configured one.
	DefaultVouchChannel snowflake.ID `toml:"default_vouch_channel"`
}

func (c GiveawayConfig) ScanIntervalDuration() time.Duration {
	if c.ScanInterval <= 0 {
		return 0
	}
	return time.Duration(c.ScanInterval) * time.Second
}
