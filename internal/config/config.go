package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Local       LocalConfig       `mapstructure:"local"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Session     SessionConfig     `mapstructure:"session"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Translation TranslationConfig `mapstructure:"translation"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"baseURL"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// LocalConfig points at the SQLite file holding the node snapshot.
type LocalConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig holds the MySQL DSN of the primary backend. An empty DSN runs the
// archive in local-only mode.
type RemoteConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Enabled reports whether a remote backend is configured.
func (r RemoteConfig) Enabled() bool { return r.DSN != "" }

// SessionConfig controls the admin session cookie.
type SessionConfig struct {
	Lifetime int    `mapstructure:"lifetime"` // hours
	Store    string `mapstructure:"store"`    // "local" or "remote"
}

// AdminConfig holds the shared admin passcode. PasscodeHash (bcrypt) wins over Passcode.
type AdminConfig struct {
	Passcode     string  `mapstructure:"passcode"`
	PasscodeHash string  `mapstructure:"passcodeHash"`
	UnlockRate   float64 `mapstructure:"unlockRate"` // attempts per minute per client
	UnlockBurst  int     `mapstructure:"unlockBurst"`
}

// CacheConfig holds the translation cache settings.
type CacheConfig struct {
	FilePath string `mapstructure:"filePath"`
	TTLHours int    `mapstructure:"ttlHours"`
}

// TranslationConfig holds the Gemini client settings and prompt preferences.
type TranslationConfig struct {
	APIKey         string `mapstructure:"apiKey"`
	BaseURL        string `mapstructure:"baseURL"`
	Model          string `mapstructure:"model"`
	Tone           string `mapstructure:"tone"`       // scholarly, literal, modern
	Complexity     string `mapstructure:"complexity"` // detailed, concise
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// DefaultPasscode is used when no passcode is configured. main warns about it.
const DefaultPasscode = "770"

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.baseURL", "http://localhost:8080")
	v.SetDefault("local.path", "archive.db")
	v.SetDefault("remote.dsn", "")
	v.SetDefault("session.lifetime", 12)
	v.SetDefault("session.store", "local")
	v.SetDefault("admin.passcode", DefaultPasscode)
	v.SetDefault("admin.passcodeHash", "")
	v.SetDefault("admin.unlockRate", 5)
	v.SetDefault("admin.unlockBurst", 5)
	v.SetDefault("cache.filePath", "cache.db")
	v.SetDefault("cache.ttlHours", 24*30)
	v.SetDefault("translation.apiKey", "")
	v.SetDefault("translation.baseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("translation.model", "gemini-2.0-flash")
	v.SetDefault("translation.tone", "scholarly")
	v.SetDefault("translation.complexity", "detailed")
	v.SetDefault("translation.timeoutSeconds", 90)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Set up viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-archive-app/")
	v.AddConfigPath("$HOME/.go-archive-app")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	// Set up viper to read from environment variables, e.g. ARCHIVE_REMOTE_DSN.
	v.SetEnvPrefix("ARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
