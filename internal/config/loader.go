package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

var defaults = map[string]interface{}{
	"server.port":              8080,
	"server.csrf_key":          "",
	"server.secure_cookies":    false,
	"backend.base_url":         "http://localhost:8000",
	"backend.timeout_ms":       0,
	"logging.level":            "info",
	"logging.format":           "json",
	"database.path":            "./activityportal.db",
	"auth.admin_user":          "admin",
	"auth.admin_password_hash": "",
	"ui.message_hide_ms":       5000,
	"ui.default_locale":        "en",
}

// Load reads .env, then config.yaml from ./configs or the working directory,
// then environment overrides such as BACKEND_BASE_URL.
func Load() (*Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func loadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("failed to load %s: %v\n", path, err)
	}
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.CSRFKey != "" && len(cfg.Server.CSRFKey) != 32 {
		return fmt.Errorf("server.csrf_key must be 32 bytes, got %d", len(cfg.Server.CSRFKey))
	}

	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url %q must be an absolute http(s) URL", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutMs < 0 {
		return fmt.Errorf("backend.timeout_ms cannot be negative")
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if cfg.Auth.AdminPasswordHash != "" && cfg.Auth.AdminUser == "" {
		return fmt.Errorf("auth.admin_user is required when auth.admin_password_hash is set")
	}

	if cfg.UI.MessageHideMs <= 0 {
		return fmt.Errorf("ui.message_hide_ms must be positive")
	}
	if _, err := language.Parse(cfg.UI.DefaultLocale); err != nil {
		return fmt.Errorf("ui.default_locale: %w", err)
	}

	return nil
}
