// Package config loads the daemon configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mail holds SMTP settings for the activation-email notifier.
type Mail struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	BaseURL  string `yaml:"base_url"`
}

// Config is the parsed daemon configuration with defaults applied.
type Config struct {
	Host         string
	Port         int
	DatabasePath string
	LogDir       string

	// Reverse proxy subprocess
	RunReverseProxy        bool
	ChatGPTPaid            bool
	ReverseProxyBinaryPath string
	ReverseProxyPort       int
	AutoRefreshProxyPUID   bool

	// Token rotation
	TokenRefreshInterval     time.Duration
	AccountDelay             time.Duration
	DeactivateOnAuthFailure  bool

	// Conversation sync
	SyncConversationsOnStartup  bool
	SyncConversationsRegularly  bool
	SyncConversationsInterval   time.Duration

	// Statistics
	StatsDumpInterval time.Duration
	StatsFile         string

	// Upstream provider
	ChatGPTBaseURL string

	// Base64-encoded 32-byte key for encrypting stored account passwords
	AccountSecret string

	Mail Mail
}

// fileConfig mirrors the YAML layout; durations are strings so operators
// can write "6s" / "144h" directly.
type fileConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	DatabasePath string `yaml:"database_path"`
	LogDir       string `yaml:"log_dir"`

	RunReverseProxy        bool   `yaml:"run_reverse_proxy"`
	ChatGPTPaid            bool   `yaml:"chatgpt_paid"`
	ReverseProxyBinaryPath string `yaml:"reverse_proxy_binary_path"`
	ReverseProxyPort       int    `yaml:"reverse_proxy_port"`
	AutoRefreshProxyPUID   bool   `yaml:"auto_refresh_reverse_proxy_puid"`

	TokenRefreshInterval    string `yaml:"token_refresh_interval"`
	AccountDelay            string `yaml:"account_delay"`
	DeactivateOnAuthFailure bool   `yaml:"deactivate_on_auth_failure"`

	SyncConversationsOnStartup *bool  `yaml:"sync_conversations_on_startup"`
	SyncConversationsRegularly *bool  `yaml:"sync_conversations_regularly"`
	SyncConversationsInterval  string `yaml:"sync_conversations_interval"`

	StatsDumpInterval string `yaml:"stats_dump_interval"`
	StatsFile         string `yaml:"stats_file"`

	ChatGPTBaseURL string `yaml:"chatgpt_base_url"`
	AccountSecret  string `yaml:"chatgpt_user_secret"`

	Mail Mail `yaml:"mail"`
}

// Defaults matching the reference deployment.
const (
	DefaultPort             = 8080
	DefaultReverseProxyPort = 6060

	defaultTokenRefreshInterval = 144 * time.Hour // every 6 days
	defaultAccountDelay         = 5 * time.Second
	defaultSyncInterval         = 12 * time.Hour
	defaultStatsDumpInterval    = 5 * time.Minute
)

// Load reads and parses the config file at path, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Host:         fc.Host,
		Port:         fc.Port,
		DatabasePath: fc.DatabasePath,
		LogDir:       fc.LogDir,

		RunReverseProxy:        fc.RunReverseProxy,
		ChatGPTPaid:            fc.ChatGPTPaid,
		ReverseProxyBinaryPath: fc.ReverseProxyBinaryPath,
		ReverseProxyPort:       fc.ReverseProxyPort,
		AutoRefreshProxyPUID:   fc.AutoRefreshProxyPUID,

		DeactivateOnAuthFailure: fc.DeactivateOnAuthFailure,

		SyncConversationsOnStartup: boolOr(fc.SyncConversationsOnStartup, true),
		SyncConversationsRegularly: boolOr(fc.SyncConversationsRegularly, true),

		StatsFile: fc.StatsFile,

		ChatGPTBaseURL: fc.ChatGPTBaseURL,
		AccountSecret:  fc.AccountSecret,

		Mail: fc.Mail,
	}

	if cfg.Host == "" {
		cfg.Host = "127.0.0.1" // Local operator API; set host: 0.0.0.0 for LAN access
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "cws.db"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}
	if cfg.ReverseProxyPort == 0 {
		cfg.ReverseProxyPort = DefaultReverseProxyPort
	}
	if cfg.StatsFile == "" {
		cfg.StatsFile = "statistics.json"
	}
	if cfg.ChatGPTBaseURL == "" {
		cfg.ChatGPTBaseURL = "https://chat.openai.com"
	}

	if cfg.TokenRefreshInterval, err = durationOr(fc.TokenRefreshInterval, defaultTokenRefreshInterval); err != nil {
		return nil, fmt.Errorf("token_refresh_interval: %w", err)
	}
	if cfg.AccountDelay, err = durationOr(fc.AccountDelay, defaultAccountDelay); err != nil {
		return nil, fmt.Errorf("account_delay: %w", err)
	}
	if cfg.SyncConversationsInterval, err = durationOr(fc.SyncConversationsInterval, defaultSyncInterval); err != nil {
		return nil, fmt.Errorf("sync_conversations_interval: %w", err)
	}
	if cfg.StatsDumpInterval, err = durationOr(fc.StatsDumpInterval, defaultStatsDumpInterval); err != nil {
		return nil, fmt.Errorf("stats_dump_interval: %w", err)
	}

	// Env overrides, same precedence as the server flags
	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Port)
	}

	return cfg, nil
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
