package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token   string `yaml:"token"`
	Mode    string `yaml:"mode"` // polling | webhook (future)
	Workers int    `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type AdminConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StateTTL time.Duration `yaml:"state_ttl"`
}

// SchedulerConfig drives the reminder engine cadences. Daily checks run
// at ReminderHour local time; the outbox dispatcher runs every
// OutboxInterval.
type SchedulerConfig struct {
	ReminderHour          int           `yaml:"reminder_hour"`
	BirthdayLookaheadDays int           `yaml:"birthday_lookahead_days"`
	FundDeadlineDays      int           `yaml:"fund_deadline_days"`
	OutboxInterval        time.Duration `yaml:"outbox_interval"`
	PurgeAfterDays        int           `yaml:"purge_after_days"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	// An empty token is allowed in dev mode; the app then runs with a
	// no-op sender instead of polling Telegram.
	if cfg.Bot.Token == "" && !cfg.Runtime.Dev {
		return errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Scheduler.ReminderHour < 0 || cfg.Scheduler.ReminderHour > 23 {
		return errors.New("scheduler.reminder_hour must be 0..23")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.StateTTL <= 0 {
		cfg.Redis.StateTTL = 15 * time.Minute
	}
	if cfg.Scheduler.BirthdayLookaheadDays <= 0 {
		cfg.Scheduler.BirthdayLookaheadDays = 10
	}
	if cfg.Scheduler.FundDeadlineDays <= 0 {
		cfg.Scheduler.FundDeadlineDays = 3
	}
	if cfg.Scheduler.OutboxInterval <= 0 {
		cfg.Scheduler.OutboxInterval = 5 * time.Minute
	}
	if cfg.Scheduler.PurgeAfterDays <= 0 {
		cfg.Scheduler.PurgeAfterDays = 90
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8081
	}
}
