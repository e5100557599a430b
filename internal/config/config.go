package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "SEOAUDIT"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultProbeTimeoutSeconds = 5
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultCookieName          = "seoaudit_session"
	defaultSessionTTLMinutes   = 60
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress          string
	AllowedOrigins       []string
	DatabaseURL          string
	ProbeTimeout         time.Duration
	LogLevel             string
	LogFormat            string
	SessionSigningSecret string
	SessionCookieName    string
	SessionTTL           time.Duration
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
	// the bare DATABASE_URL is honored alongside the prefixed variable
	_ = configViper.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{})
	configViper.SetDefault("database.url", "")
	configViper.SetDefault("database.probe_timeout_seconds", defaultProbeTimeoutSeconds)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("session.cookie_name", defaultCookieName)
	configViper.SetDefault("session.ttl_minutes", defaultSessionTTLMinutes)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:          strings.TrimSpace(configViper.GetString("http.address")),
		AllowedOrigins:       splitOrigins(configViper.GetStringSlice("http.allowed_origins")),
		DatabaseURL:          strings.TrimSpace(configViper.GetString("database.url")),
		ProbeTimeout:         time.Duration(configViper.GetInt("database.probe_timeout_seconds")) * time.Second,
		LogLevel:             configViper.GetString("log.level"),
		LogFormat:            configViper.GetString("log.format"),
		SessionSigningSecret: configViper.GetString("session.signing_secret"),
		SessionCookieName:    strings.TrimSpace(configViper.GetString("session.cookie_name")),
		SessionTTL:           time.Duration(configViper.GetInt("session.ttl_minutes")) * time.Minute,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	for _, origin := range c.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("http.allowed_origins: %q must start with http:// or https://", origin)
		}
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("database.probe_timeout_seconds must be positive")
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	return nil
}

// splitOrigins accepts both list values from a config file and the
// comma separated form used in environment variables.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}
