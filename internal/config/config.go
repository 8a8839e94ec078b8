package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	OwnerChatID   int64
	DigestTime    string
	FocusMinutes  int
	BreakMinutes  int
	FocusSets     int
	TickInterval  time.Duration
}

// New returns a viper instance with defaults and env bindings. The CLI binds
// its flags into the same instance before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("database_url", "taskplanner.db")
	v.SetDefault("digest_time", "08:00")
	v.SetDefault("focus_minutes", 25)
	v.SetDefault("break_minutes", 5)
	v.SetDefault("focus_sets", 4)
	v.SetDefault("tick_interval", time.Second)
	v.SetDefault("owner_chat_id", 0)
	v.SetDefault("telegram_token", "")
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file, then environment variables, then
// validates. An empty path searches taskplanner.yaml in the working
// directory and in $TASKPLANNER_CONFIG_PATH.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskplanner") // .yaml is implicit
		if override := os.Getenv("TASKPLANNER_CONFIG_PATH"); override != "" {
			v.AddConfigPath(override)
		}
		v.AddConfigPath("./")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		TelegramToken: strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:   strings.TrimSpace(v.GetString("database_url")),
		OwnerChatID:   v.GetInt64("owner_chat_id"),
		DigestTime:    strings.TrimSpace(v.GetString("digest_time")),
		FocusMinutes:  v.GetInt("focus_minutes"),
		BreakMinutes:  v.GetInt("break_minutes"),
		FocusSets:     v.GetInt("focus_sets"),
		TickInterval:  v.GetDuration("tick_interval"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskplanner.db"
	}
	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if err := validateClock(cfg.DigestTime); err != nil {
		return cfg, fmt.Errorf("DIGEST_TIME: %w", err)
	}
	if cfg.FocusMinutes <= 0 || cfg.BreakMinutes <= 0 || cfg.FocusSets <= 0 {
		return cfg, fmt.Errorf("focus minutes, break minutes and sets must be positive")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	return cfg, nil
}

func validateClock(raw string) error {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", raw)
	}
	return nil
}
