package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"ipwatch/internal/logger"
	"ipwatch/internal/validator"

	"github.com/spf13/viper"
)

// AppName is the application name used for config search paths.
const AppName = "ipwatch"

// Check modes.
const (
	ModeDNS    = "dns"
	ModeChange = "change"
)

// Config represents the application configuration
type Config struct {
	Mode    string        `mapstructure:"mode" validate:"required,oneof=dns change"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	DNS     DNSConfig     `mapstructure:"dns"`
	State   StateConfig   `mapstructure:"state"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Log     logger.Config `mapstructure:"log"`
}

// FetcherConfig represents external IP fetcher configuration
type FetcherConfig struct {
	Providers []string      `mapstructure:"providers"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DNSConfig represents reference DNS lookup configuration (dns mode)
type DNSConfig struct {
	Domain     string        `mapstructure:"domain" validate:"hostname"`
	Nameserver string        `mapstructure:"nameserver"` // host:port, empty means system resolver
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StateConfig represents saved-IP store configuration (change mode)
type StateConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file sqlite"`
	Path    string `mapstructure:"path"`
}

// NotifyConfig represents notification configuration
type NotifyConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// PushoverConfig represents the Pushover notification configuration
type PushoverConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	UserKey string `mapstructure:"user_key"`
	Token   string `mapstructure:"token"`
	Sound   string `mapstructure:"sound" validate:"pushover_sound"`
	APIURL  string `mapstructure:"api_url"`
}

// TelegramConfig represents the Telegram notification configuration
type TelegramConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	BotToken string   `mapstructure:"bot_token"`
	ChatIDs  []string `mapstructure:"chat_ids"`
	APIURL   string   `mapstructure:"api_url"`
}

// WebhookConfig represents the webhook notification configuration
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load loads the configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/" + AppName)
		v.AddConfigPath("/etc/" + AppName)
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
	}
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values if not specified
func setDefaults(cfg *Config) {
	if len(cfg.Fetcher.Providers) == 0 {
		cfg.Fetcher.Providers = []string{
			"https://api.ipify.org",
			"https://ifconfig.me/ip",
			"https://icanhazip.com",
		}
	}
	if cfg.Fetcher.Timeout == 0 {
		cfg.Fetcher.Timeout = 10 * time.Second
	}

	if cfg.DNS.Timeout == 0 {
		cfg.DNS.Timeout = 5 * time.Second
	}

	if cfg.State.Backend == "" {
		cfg.State.Backend = "file"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = defaultStatePath(cfg.State.Backend)
	}

	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 10 * time.Second
	}
	if cfg.Notify.Pushover.APIURL == "" {
		cfg.Notify.Pushover.APIURL = "https://api.pushover.net/1/messages.json"
	}
	if cfg.Notify.Telegram.APIURL == "" {
		cfg.Notify.Telegram.APIURL = "https://api.telegram.org"
	}

	cfg.Log.SetDefaults()
}

// defaultStatePath returns the state path under the user config directory
func defaultStatePath(backend string) string {
	name := "saved_ip.txt"
	if backend == "sqlite" {
		name = "ipwatch.db"
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName, name)
	}
	return name
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if err := validateProviders(cfg.Fetcher.Providers); err != nil {
		return fmt.Errorf("invalid fetcher providers: %w", err)
	}

	if cfg.Mode == ModeDNS && cfg.DNS.Domain == "" {
		return fmt.Errorf("dns.domain is required in dns mode")
	}
	if cfg.Mode == ModeChange && cfg.State.Path == "" {
		return fmt.Errorf("state.path is required in change mode")
	}

	if cfg.Notify.Pushover.Enabled {
		if cfg.Notify.Pushover.UserKey == "" {
			return fmt.Errorf("notify.pushover.user_key cannot be empty")
		}
		if cfg.Notify.Pushover.Token == "" {
			return fmt.Errorf("notify.pushover.token cannot be empty")
		}
	}

	if cfg.Notify.Telegram.Enabled {
		if cfg.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token cannot be empty")
		}
		if len(cfg.Notify.Telegram.ChatIDs) == 0 {
			return fmt.Errorf("notify.telegram.chat_ids cannot be empty")
		}
	}

	if cfg.Notify.Webhook.Enabled {
		if cfg.Notify.Webhook.URL == "" {
			return fmt.Errorf("notify.webhook.url cannot be empty")
		}
	}

	return cfg.Log.Validate()
}

// validateProviders validates external IP provider URLs
func validateProviders(providers []string) error {
	seen := make(map[string]bool)
	for _, provider := range providers {
		if provider == "" {
			return fmt.Errorf("provider URL cannot be empty")
		}

		u, err := url.ParseRequestURI(provider)
		if err != nil {
			return fmt.Errorf("invalid provider URL %s: %w", provider, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("provider URL %s must use HTTP(S) protocol", provider)
		}
		if u.Host == "" {
			return fmt.Errorf("provider URL %s has no host", provider)
		}

		if seen[provider] {
			return fmt.Errorf("duplicate provider URL: %s", provider)
		}
		seen[provider] = true
	}
	return nil
}
