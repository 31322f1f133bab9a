package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix               = "DOCGEN"
	defaultHTTPAddress      = "0.0.0.0:8080"
	defaultDatabasePath     = "docgen.db"
	defaultLogLevel         = "info"
	defaultKeyPath          = "docgen.key"
	defaultRetentionDays    = 365
	defaultMaxDocuments     = 300
	defaultAutosaveQuietMs  = 600
	defaultInsecureFallback = false
)

// AppConfig captures runtime configuration for the docgen API server.
type AppConfig struct {
	HTTPAddress           string
	DatabasePath          string
	LogLevel              string
	MasterKeyPath         string
	AllowInsecureFallback bool
	RetentionDays         int
	MaxDocuments          int
	AutosaveQuiet         time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("crypto.key_path", defaultKeyPath)
	configViper.SetDefault("crypto.allow_insecure_fallback", defaultInsecureFallback)
	configViper.SetDefault("retention.days", defaultRetentionDays)
	configViper.SetDefault("retention.max_documents", defaultMaxDocuments)
	configViper.SetDefault("profile.autosave_quiet_ms", defaultAutosaveQuietMs)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:           configViper.GetString("http.address"),
		DatabasePath:          configViper.GetString("database.path"),
		LogLevel:              configViper.GetString("log.level"),
		MasterKeyPath:         configViper.GetString("crypto.key_path"),
		AllowInsecureFallback: configViper.GetBool("crypto.allow_insecure_fallback"),
		RetentionDays:         configViper.GetInt("retention.days"),
		MaxDocuments:          configViper.GetInt("retention.max_documents"),
		AutosaveQuiet:         time.Duration(configViper.GetInt("profile.autosave_quiet_ms")) * time.Millisecond,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.MasterKeyPath) == "" {
		return fmt.Errorf("crypto.key_path is required")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention.days must be positive")
	}
	if c.MaxDocuments <= 0 {
		return fmt.Errorf("retention.max_documents must be positive")
	}
	if c.AutosaveQuiet <= 0 {
		return fmt.Errorf("profile.autosave_quiet_ms must be positive")
	}
	return nil
}
