package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Client ClientConfig
	Server ServerConfig
	JWT    JWTConfig
	Log    LogConfig
}

type ClientConfig struct {
	APIURL        string
	StatePath     string
	AutosaveDelay time.Duration
}

type ServerConfig struct {
	Port    string
	DataDir string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int64 // seconds
	RefreshExpiry int64 // seconds
}

type LogConfig struct {
	Level string
}

// Load reads configuration from the environment, optionally layered over the
// file named by NOTES_CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("NOTES_API_URL", "http://localhost:8000/api")
	v.SetDefault("NOTES_STATE_PATH", defaultStatePath())
	v.SetDefault("NOTES_AUTOSAVE_DELAY_MS", 500)
	v.SetDefault("NOTES_LOG_LEVEL", "info")
	v.SetDefault("PORT", "8000")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("JWT_ACCESS_TTL", 900)
	v.SetDefault("JWT_REFRESH_TTL", 604800)

	if p := os.Getenv("NOTES_CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}

	cfg := &Config{
		Client: ClientConfig{
			APIURL:        strings.TrimRight(v.GetString("NOTES_API_URL"), "/"),
			StatePath:     v.GetString("NOTES_STATE_PATH"),
			AutosaveDelay: time.Duration(v.GetInt64("NOTES_AUTOSAVE_DELAY_MS")) * time.Millisecond,
		},
		Server: ServerConfig{
			Port:    v.GetString("PORT"),
			DataDir: v.GetString("DATA_DIR"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  v.GetInt64("JWT_ACCESS_TTL"),
			RefreshExpiry: v.GetInt64("JWT_REFRESH_TTL"),
		},
		Log: LogConfig{
			Level: v.GetString("NOTES_LOG_LEVEL"),
		},
	}
	if cfg.Client.AutosaveDelay <= 0 {
		cfg.Client.AutosaveDelay = 500 * time.Millisecond
	}
	if cfg.JWT.AccessExpiry <= 0 {
		cfg.JWT.AccessExpiry = 900
	}
	if cfg.JWT.RefreshExpiry <= 0 {
		cfg.JWT.RefreshExpiry = 604800
	}
	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pocket-notes", "state.db")
	}
	return filepath.Join(home, ".pocket-notes", "state.db")
}

// Logger builds a console logger at the configured level.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func (c *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessExpiry) * time.Second
}

func (c *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpiry) * time.Second
}
