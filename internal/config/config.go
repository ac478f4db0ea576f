package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	UI       UIConfig       `mapstructure:"ui"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// CSRFKey enables CSRF protection on the form posts when set. It must be
	// 32 bytes.
	CSRFKey       string `mapstructure:"csrf_key"`
	SecureCookies bool   `mapstructure:"secure_cookies"`
}

// BackendConfig points at the activities REST API.
type BackendConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMs int    `mapstructure:"timeout_ms"` // 0 keeps the transport default
}

func (b BackendConfig) Timeout() time.Duration {
	return GetDuration(b.TimeoutMs)
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig protects the action log. Leaving the hash empty disables auth.
type AuthConfig struct {
	AdminUser         string `mapstructure:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

type UIConfig struct {
	MessageHideMs int    `mapstructure:"message_hide_ms"`
	DefaultLocale string `mapstructure:"default_locale"`
}

func (u UIConfig) MessageHideAfter() time.Duration {
	return GetDuration(u.MessageHideMs)
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
