package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDatabaseURL      = "tasklist.db"
	defaultTasksAPIURL      = "https://todo-expo-backend.onrender.com"
	defaultTasksAPITimeout  = 30 * time.Second
	defaultReminderInterval = 5 * time.Hour
	defaultLogLevel         = "info"
)

// Config keeps runtime settings for the bot and the CLI.
type Config struct {
	TelegramToken    string        `yaml:"telegram_token"`
	DatabaseURL      string        `yaml:"database_url"`
	TasksAPIURL      string        `yaml:"tasks_api_url"`
	TasksAPITimeout  time.Duration `yaml:"tasks_api_timeout"`
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	// ReminderAt adds a daily reminder at HH:MM on top of the interval job.
	ReminderAt string `yaml:"reminder_at"`
	LogLevel         string        `yaml:"log_level"`
}

// Load reads the optional CONFIG_FILE, then environment variables, then fills defaults.
func Load() (Config, error) {
	var cfg Config
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKS_API_URL")); v != "" {
		cfg.TasksAPIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKS_API_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return cfg, fmt.Errorf("invalid TASKS_API_TIMEOUT %q", v)
		}
		cfg.TasksAPITimeout = d
	}
	if v := parseInterval(strings.TrimSpace(os.Getenv("REMINDER_INTERVAL_HOURS"))); v > 0 {
		cfg.ReminderInterval = v
	}
	if v := strings.TrimSpace(os.Getenv("REMINDER_AT")); v != "" {
		cfg.ReminderAt = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	if cfg.TasksAPIURL == "" {
		cfg.TasksAPIURL = defaultTasksAPIURL
	}
	if cfg.TasksAPITimeout == 0 {
		cfg.TasksAPITimeout = defaultTasksAPITimeout
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = defaultReminderInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.TasksAPIURL = strings.TrimRight(cfg.TasksAPIURL, "/")

	return cfg, nil
}

// Validate checks the settings only the bot needs.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	return nil
}

func readFile(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}
