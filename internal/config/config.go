package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	BackendBaseURL  string        `mapstructure:"BACKEND_BASE_URL"`
	BackendUserName string        `mapstructure:"BACKEND_USERNAME"`
	BackendPassword string        `mapstructure:"BACKEND_PASSWORD"`
	BackendTimeout  time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	DefaultLocation string        `mapstructure:"DEFAULT_LOCATION"`
	DevDUZ          string        `mapstructure:"DEV_DUZ"`
	DevKeys         []string      `mapstructure:"DEV_KEYS"`

	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32  `mapstructure:"DB_MIN_CONNS"`
	AccessLogRetentionDays int    `mapstructure:"ACCESS_LOG_RETENTION_DAYS"`

	RedisURL         string        `mapstructure:"REDIS_URL"`
	CacheTTL         time.Duration `mapstructure:"CACHE_TTL"`
	PHIEncryptionKey string        `mapstructure:"PHI_ENCRYPTION_KEY"`

	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	AuditHashKey      string        `mapstructure:"AUDIT_HASH_KEY"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	TLSEnabled  bool   `mapstructure:"TLS_ENABLED"`
	TLSCertFile string `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile  string `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV",
	"BACKEND_BASE_URL", "BACKEND_USERNAME", "BACKEND_PASSWORD", "BACKEND_TIMEOUT",
	"DEFAULT_LOCATION", "DEV_DUZ", "DEV_KEYS",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "ACCESS_LOG_RETENTION_DAYS",
	"REDIS_URL", "CACHE_TTL", "PHI_ENCRYPTION_KEY",
	"SESSION_SIGNING_KEY", "SESSION_TTL", "AUDIT_HASH_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads configuration from the environment and an optional .env file.
// It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("ACCESS_LOG_RETENTION_DAYS", 2555)
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 60)
	v.SetDefault("REQUEST_TIMEOUT", "45s")
	v.SetDefault("BODY_LIMIT", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.DevKeys = splitList(cfg.DevKeys, v.GetString("DEV_KEYS"))
	cfg.BackendBaseURL = strings.TrimRight(cfg.BackendBaseURL, "/")

	return cfg, nil
}

// splitList accepts both a decoded slice and a raw comma-separated value.
func splitList(decoded []string, raw string) []string {
	if len(decoded) == 1 && strings.Contains(decoded[0], ",") {
		raw, decoded = decoded[0], nil
	}
	if decoded == nil && raw != "" {
		decoded = strings.Split(raw, ",")
	}
	var out []string
	for _, s := range decoded {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey decodes SESSION_SIGNING_KEY. It returns nil when unset.
func (c *Config) SigningKey() ([]byte, error) {
	if c.SessionSigningKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SessionSigningKey)
	if err != nil {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY is not valid hex: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// PHIKey decodes PHI_ENCRYPTION_KEY. It returns nil when unset.
func (c *Config) PHIKey() ([]byte, error) {
	if c.PHIEncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.PHIEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Validate checks that the configuration is safe to run. Outside development
// the backend service account and a session signing key are required and the
// development session is refused. In production cached PHI must be encrypted.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be \"development\", \"staging\", or \"production\", got %q", c.Env)
	}

	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	u, err := url.Parse(c.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute http(s) URL, got %q", c.BackendBaseURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}

	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if _, err := c.PHIKey(); err != nil {
		return err
	}

	if !c.IsDev() {
		if c.BackendUserName == "" || c.BackendPassword == "" {
			return fmt.Errorf("BACKEND_USERNAME and BACKEND_PASSWORD are required when ENV=%s", c.Env)
		}
		if c.SessionSigningKey == "" {
			return fmt.Errorf("SESSION_SIGNING_KEY is required when ENV=%s", c.Env)
		}
		if c.DevDUZ != "" {
			return fmt.Errorf("DEV_DUZ is only allowed when ENV=development")
		}
	}
	if c.IsProduction() {
		if c.PHIEncryptionKey == "" {
			return fmt.Errorf("PHI_ENCRYPTION_KEY is required in production")
		}
		if u.Scheme != "https" {
			return fmt.Errorf("BACKEND_BASE_URL must use https in production")
		}
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
