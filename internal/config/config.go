// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数のプレフィックス。
// NEWSWATCHER_BACKEND_URL と BACKEND_URL のどちらでも指定できる。
const EnvPrefix = "NEWSWATCHER"

// ConfigFileEnv は設定ファイルのパスを指定する環境変数。
const ConfigFileEnv = "NEWSWATCHER_CONFIG"

// Config はアプリケーション全体の設定を保持する。
// 起動時に1回読み込み、イミュータブルとして扱う。
// 優先順位: デフォルト値 < 設定ファイル(YAML) < 環境変数（.envを含む）
type Config struct {
	// Backend
	BackendURL     string        `yaml:"backend_url" envconfig:"BACKEND_URL"`
	BackendTimeout time.Duration `yaml:"backend_timeout" envconfig:"BACKEND_TIMEOUT"`

	// Push
	PushListenAddr    string  `yaml:"push_listen_addr" envconfig:"PUSH_LISTEN_ADDR"`
	PushRateLimit     float64 `yaml:"push_rate_limit" envconfig:"PUSH_RATE_LIMIT"`
	PushRateBurst     int     `yaml:"push_rate_burst" envconfig:"PUSH_RATE_BURST"`
	NATSURL           string  `yaml:"nats_url" envconfig:"NATS_URL"`
	NATSSubjectPrefix string  `yaml:"nats_subject_prefix" envconfig:"NATS_SUBJECT_PREFIX"`

	// Preferences
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	PrefsKey      string `yaml:"prefs_key" envconfig:"PREFS_KEY"`

	// Sync
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL"`
	PageSize        int           `yaml:"page_size" envconfig:"PAGE_SIZE"`
	ReconcileDelay  time.Duration `yaml:"reconcile_delay" envconfig:"RECONCILE_DELAY"`
	AlertTTL        time.Duration `yaml:"alert_ttl" envconfig:"ALERT_TTL"`

	// Logging
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// Default はデフォルト値を設定したConfigを返す。
func Default() *Config {
	return &Config{
		BackendTimeout:    30 * time.Second,
		PushListenAddr:    ":8081",
		PushRateLimit:     20,
		PushRateBurst:     40,
		NATSSubjectPrefix: "newswatcher.push",
		PrefsKey:          "newswatcher:prefs",
		RefreshInterval:   300 * time.Second,
		PageSize:          50,
		ReconcileDelay:    2 * time.Second,
		AlertTTL:          5 * time.Second,
		LogLevel:          "info",
	}
}

// Load は設定ファイル（NEWSWATCHER_CONFIG）と環境変数からConfigを読み込む。
// 必須項目が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	return LoadFrom(os.Getenv(ConfigFileEnv))
}

// LoadFrom は指定パスの設定ファイルと環境変数からConfigを読み込む。
// pathが空の場合は設定ファイルを読まない。
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// 1. .env（存在しなければスキップ。既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil {
		slog.Debug("skipping .env", slog.String("error", err.Error()))
	}

	// 2. 設定ファイル
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// 3. 環境変数による上書き
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は必須項目と値の範囲を検証する。
func (c *Config) validate() error {
	var missing []string

	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	if c.BackendURL == "" {
		missing = append(missing, "BACKEND_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("BACKEND_URL must start with http:// or https://: %s", c.BackendURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive: %d", c.PageSize)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1s: %v", c.RefreshInterval)
	}
	if c.ReconcileDelay < 0 {
		return fmt.Errorf("RECONCILE_DELAY must not be negative: %v", c.ReconcileDelay)
	}

	return nil
}

// NATSEnabled はNATS経由のプッシュ受信が有効かどうかを返す。
func (c *Config) NATSEnabled() bool {
	return c.NATSURL != ""
}

// RedisEnabled はRedisによる設定保存が有効かどうかを返す。
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
