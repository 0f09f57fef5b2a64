// Package config loads application configuration from a YAML file and
// environment variables, environment taking precedence.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"inbox-briefing-go/internal/errs"
)

// Config holds all configuration for the application.
type Config struct {
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Run      RunConfig      `mapstructure:"run"`
}

// GmailConfig holds mail-provider credentials. OAuth2 fields drive the
// Gmail API provider; the IMAP fields are used when use_imap is set.
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// TelegramConfig holds the notification channel credentials.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// RunConfig holds per-run behavior defaults; CLI flags override them.
type RunConfig struct {
	Limit          int    `mapstructure:"limit"`
	DryRun         bool   `mapstructure:"dry_run"`
	CategoriesPath string `mapstructure:"categories_path"`
}

// Load reads configuration from config.yaml (working directory or
// ./config) and the environment.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("gmail.use_imap", false)
	viper.SetDefault("gmail.imap_host", "imap.gmail.com")
	viper.SetDefault("gmail.imap_port", 993)

	viper.SetDefault("run.limit", 50)
	viper.SetDefault("run.dry_run", false)
	viper.SetDefault("run.categories_path", "./config/categories.json")
}

func bindEnvVars() {
	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
	viper.BindEnv("gmail.use_imap", "GMAIL_USE_IMAP")
	viper.BindEnv("gmail.imap_host", "GMAIL_IMAP_HOST")
	viper.BindEnv("gmail.imap_port", "GMAIL_IMAP_PORT")
	viper.BindEnv("gmail.imap_user", "GMAIL_IMAP_USER")
	viper.BindEnv("gmail.imap_password", "GMAIL_IMAP_PASSWORD")

	viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	viper.BindEnv("run.limit", "RUN_LIMIT")
	viper.BindEnv("run.dry_run", "RUN_DRY_RUN")
	viper.BindEnv("run.categories_path", "RUN_CATEGORIES_PATH")
}

// Validate checks that the configured provider and notifier have the
// credentials they need. Credential gaps are reported as errs.ErrCredential
// so the CLI exits with the credential status.
func (c *Config) Validate() error {
	if !c.Gmail.UseIMAP {
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
			return fmt.Errorf("%w: Gmail OAuth2 client_id, client_secret, and refresh_token are required", errs.ErrCredential)
		}
	} else {
		if c.Gmail.IMAPUser == "" || c.Gmail.IMAPPassword == "" {
			return fmt.Errorf("%w: IMAP user and password are required when use_imap is set", errs.ErrCredential)
		}
	}

	if !c.Run.DryRun && c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram bot_token is required outside dry-run", errs.ErrCredential)
	}

	if c.Run.Limit <= 0 {
		return fmt.Errorf("run limit must be greater than 0")
	}
	if c.Run.CategoriesPath == "" {
		return fmt.Errorf("categories_path is required")
	}

	return nil
}
