package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	DatabaseDriver   string `mapstructure:"DATABASE_DRIVER"`
	DatabasePath     string `mapstructure:"DATABASE_PATH"`
	DatabaseHost     string `mapstructure:"DATABASE_HOST"`
	DatabasePort     int    `mapstructure:"DATABASE_PORT"`
	DatabaseName     string `mapstructure:"DATABASE_NAME"`
	DatabaseUser     string `mapstructure:"DATABASE_USER"`
	DatabasePassword string `mapstructure:"DATABASE_PASSWORD"`
	DatabaseClientID string `mapstructure:"DATABASE_CLIENT_ID"`
	DatabaseSSLMode  string `mapstructure:"DATABASE_SSLMODE"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	AdminUserIDs    []string `mapstructure:"ADMIN_USER_IDS"`
	JWTSecret       string   `mapstructure:"JWT_SECRET"`
	LeaderboardSize int      `mapstructure:"LEADERBOARD_SIZE"`
	BackupDir       string   `mapstructure:"BACKUP_DIR"`
}

var envKeys = []string{
	"HTTP_PORT", "LOG_LEVEL", "LOG_PRETTY",
	"DATABASE_DRIVER", "DATABASE_PATH", "DATABASE_HOST", "DATABASE_PORT",
	"DATABASE_NAME", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_CLIENT_ID",
	"DATABASE_SSLMODE",
	"DISCORD_BOT_TOKEN", "DISCORD_GUILD_ID", "DISCORD_CLIENT_ID",
	"DISCORD_CLIENT_SECRET", "DISCORD_REDIRECT_URL", "DISCORD_NOTIFICATIONS_CHANNEL_ID",
	"ADMIN_USER_IDS", "JWT_SECRET", "LEADERBOARD_SIZE", "BACKUP_DIR",
}

// LoadConfig loads the configuration and exits the process when it is invalid.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}
	return cfg
}

// Load reads defaults, an optional file named by CONFIG_FILE, and the
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_PATH", "trophies.db")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_CLIENT_ID", "trophybot")
	v.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")
	v.SetDefault("ADMIN_USER_IDS", []string{})
	v.SetDefault("LEADERBOARD_SIZE", 10)
	v.SetDefault("BACKUP_DIR", "backups")

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if err := v.BindEnv("CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind CONFIG_FILE: %w", err)
	}
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	ids := c.AdminUserIDs[:0]
	for _, id := range c.AdminUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	c.AdminUserIDs = ids
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH must not be empty for the %s driver", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseHost == "" || c.DatabaseName == "" {
			return fmt.Errorf("DATABASE_HOST and DATABASE_NAME are required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE must be positive, got %d", c.LeaderboardSize)
	}
	if c.OAuthEnabled() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when Discord OAuth is configured")
	}
	return nil
}

// OAuthEnabled reports whether the HTTP login flow can be offered.
func (c *Config) OAuthEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// IsAdmin reports whether the Discord user id is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
