package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"fleetdesk/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Backend    BackendConfig    `yaml:"backend"`
	Redis      RedisConfig      `yaml:"redis"`
	Gates      GatesConfig      `yaml:"gates"`
	Admins     []AdminConfig    `yaml:"admins"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

// BackendConfig describes the remote rental API the console drives.
type BackendConfig struct {
	BaseURL   string                 `yaml:"base_url"`
	APIKey    string                 `yaml:"api_key"`
	APIExtra  string                 `yaml:"api_extra"`
	Timeout   time.Duration          `yaml:"timeout"`
	CacheTTL  time.Duration          `yaml:"cache_ttl"`
	RateLimit BackendRateLimitConfig `yaml:"rate_limit"`
	Retry     BackendRetryConfig     `yaml:"retry"`
}

type BackendRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BackendRetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	StateTTL time.Duration `yaml:"state_ttl"`
}

type GatesConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// AdminConfig maps a Telegram account to the back-office identity it acts as.
type AdminConfig struct {
	TelegramID int64  `yaml:"telegram_id"`
	AdminID    string `yaml:"admin_id"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
}

func (a AdminConfig) Actor() models.Actor {
	return models.Actor{ID: a.AdminID, Name: a.Name, Role: a.Role}
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	Port              int  `yaml:"port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base_url must be an http(s) URL: %q", c.Backend.BaseURL)
	}

	// Задержка не короче значения по умолчанию
	minCooldown := models.DefaultGateCooldown * time.Second
	if c.Gates.Cooldown != 0 && c.Gates.Cooldown < minCooldown {
		return fmt.Errorf("gates.cooldown must be at least %s, got %s", minCooldown, c.Gates.Cooldown)
	}

	return ValidateAdmins(c.Admins)
}

func ValidateAdmins(admins []AdminConfig) error {
	if len(admins) == 0 {
		return errors.New("at least one admin is required")
	}

	seen := make(map[int64]bool)
	for _, admin := range admins {
		if admin.TelegramID == 0 {
			return fmt.Errorf("admin '%s' has invalid telegram_id 0", admin.Name)
		}
		if seen[admin.TelegramID] {
			return fmt.Errorf("duplicate admin telegram_id found: %d", admin.TelegramID)
		}
		seen[admin.TelegramID] = true

		if err := admin.Actor().Validate(); err != nil {
			return fmt.Errorf("admin %d: %w", admin.TelegramID, err)
		}
	}
	return nil
}

// AdminByTelegramID returns the admin mapped to a Telegram account.
func (c *Config) AdminByTelegramID(telegramID int64) (AdminConfig, bool) {
	for _, admin := range c.Admins {
		if admin.TelegramID == telegramID {
			return admin, true
		}
	}
	return AdminConfig{}, false
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = models.DefaultBackendTimeout * time.Second
	}
	if c.Backend.CacheTTL == 0 {
		c.Backend.CacheTTL = models.DefaultCarsCacheTTL * time.Second
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Retry.MaxRetries == 0 {
		c.Backend.Retry.MaxRetries = 2
	}
	if c.Backend.Retry.InitialDelay == 0 {
		c.Backend.Retry.InitialDelay = 250 * time.Millisecond
	}

	if c.Redis.StateTTL == 0 {
		c.Redis.StateTTL = models.DefaultChatStateTTL * time.Second
	}

	if c.Gates.Cooldown <= 0 {
		c.Gates.Cooldown = models.DefaultGateCooldown * time.Second
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.Port == 0 {
		c.Monitoring.Port = 9090
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}
