// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

// Package config loads sessiond settings from an optional YAML file,
// environment fallbacks and command-line flags, in increasing precedence.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/sessiond/sessiond/internal/auth"
	"github.com/sessiond/sessiond/internal/logging"
)

// Defaults.
const (
	DefaultHTTPAddr       = ":4000"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultLogFormat      = "json"
	DefaultLogLevel       = "info"
	DefaultRedisURL       = "redis://127.0.0.1:6379/0"
	DefaultStoreTimeout   = 3 * time.Second
	DefaultUploadDir      = "./tmp/uploads"
	DefaultUploadMaxBytes = 10 << 20
	DefaultRateLimit      = 5.0
	DefaultRateBurst      = 10
	DefaultCORSOrigin     = "*"
)

// Config is the resolved process configuration.
type Config struct {
	HTTPAddr       string        `koanf:"http_addr"`
	MetricsAddr    string        `koanf:"metrics_addr"`
	LogFormat      string        `koanf:"log_format"`
	LogLevel       string        `koanf:"log_level"`
	DatabaseURL    string        `koanf:"database_url"`
	RedisURL       string        `koanf:"redis_url"`
	RedisPassword  string        `koanf:"redis_password"`
	JWTSecret      string        `koanf:"jwt_secret"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
	BcryptCost     int           `koanf:"bcrypt_cost"`
	StoreTimeout   time.Duration `koanf:"store_timeout"`
	UploadDir      string        `koanf:"upload_dir"`
	UploadMaxBytes int64         `koanf:"upload_max_bytes"`
	RateLimit      float64       `koanf:"rate_limit"`
	RateBurst      int           `koanf:"rate_burst"`
	CORSOrigin     string        `koanf:"cors_origin"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// RegisterFlags adds the serve flags to fs. Flag names are the config keys
// with dashes instead of underscores.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health listen address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL (env DATABASE_URL)")
	fs.String("redis-url", DefaultRedisURL, "Redis connection URL (env REDIS_URL)")
	fs.String("redis-password", "", "Redis password (env REDIS_PASSWORD)")
	fs.String("jwt-secret", "", "token signing secret (env JWT_SECRET_KEY)")
	fs.Duration("token-ttl", auth.DefaultTokenTTL, "token and session lifetime (env JWT_EXPIRES_IN)")
	fs.Int("bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor")
	fs.Duration("store-timeout", DefaultStoreTimeout, "per-call timeout for Redis and PostgreSQL")
	fs.String("upload-dir", DefaultUploadDir, "directory for uploaded files")
	fs.Int64("upload-max-bytes", DefaultUploadMaxBytes, "maximum upload size in bytes")
	fs.Float64("rate-limit", DefaultRateLimit, "credential requests per second per client (0 = unlimited)")
	fs.Int("rate-burst", DefaultRateBurst, "credential request burst per client")
	fs.String("cors-origin", DefaultCORSOrigin, "Access-Control-Allow-Origin value")
	fs.Bool("auto-migrate", true, "apply pending migrations before serving")
}

// Load resolves configuration from the file at path (optional), the process
// environment and fs. fs must have been set up with RegisterFlags and parsed.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	var envErr error
	envVars := env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key, ok := envKeys[name]
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			return "", nil
		}
		if key == "token_ttl" {
			d, err := ParseTTL(value)
			if err != nil {
				envErr = oops.With("env", name).Wrap(err)
				return "", nil
			}
			return key, d.String()
		}
		return key, value
	})
	if err := k.Load(envVars, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if envErr != nil {
		return nil, envErr
	}

	// Unchanged flags only supply defaults for keys still missing.
	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// Validate checks the settings serve needs.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("http_addr is required")
	}
	if !logging.ValidFormat(c.LogFormat) {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").Errorf("log_level %q is not a level", c.LogLevel)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (flag --database-url or env DATABASE_URL)")
	}
	if c.RedisURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("redis_url is required")
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("jwt_secret is required (flag --jwt-secret or env JWT_SECRET_KEY)")
	}
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.StoreTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("store_timeout must be positive, got %s", c.StoreTimeout)
	}
	if c.UploadMaxBytes <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("upload_max_bytes must be positive")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("rate_limit and rate_burst must not be negative")
	}
	return nil
}

// envKeys maps the environment variables sessiond has historically been
// configured with to config keys.
var envKeys = map[string]string{
	"DATABASE_URL":   "database_url",
	"REDIS_URL":      "redis_url",
	"REDIS_PASSWORD": "redis_password",
	"JWT_SECRET_KEY": "jwt_secret",
	"JWT_EXPIRES_IN": "token_ttl",
}

// ParseTTL accepts Go durations ("90m"), whole days ("7d") and bare
// seconds ("3600").
func ParseTTL(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil {
			return time.Duration(n) * 24 * time.Hour, nil
		}
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, oops.Code("CONFIG_INVALID_TTL").With("value", s).Errorf("invalid duration %q", s)
}
