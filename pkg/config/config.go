package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves a setting by name, like os.LookupEnv.
type LookupFunc func(string) (string, bool)

// EnvPropertyPrefix marks environment variables that carry profile properties.
// SQLGATEWAY_PROP_reporting__url=... becomes reporting.url.
const EnvPropertyPrefix = "SQLGATEWAY_PROP_"

// Config holds the service settings. Profile properties are kept separately in
// Properties and are consumed by the profile store.
type Config struct {
	Service       ServiceConfig
	HTTP          HTTPConfig
	Profiles      ProfilesConfig
	Archive       ArchiveConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ProfilesConfig struct {
	PropertiesFile string
	Properties     map[string]string
}

type ArchiveConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// Enabled reports whether result archiving is configured.
func (c ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv, os.Environ())
}

// Load builds a Config from defaults overridden by lookup. environ is scanned for
// SQLGATEWAY_PROP_ entries; it may be nil.
func Load(lookup LookupFunc, environ []string) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := defaults()

	if err := applyString(lookup, "SQLGATEWAY_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLGATEWAY_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLGATEWAY_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "SQLGATEWAY_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_PROPERTIES_FILE", &cfg.Profiles.PropertiesFile); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_REGION", &cfg.Archive.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_BUCKET", &cfg.Archive.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_ACCESS_KEY", &cfg.Archive.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_SECRET_KEY", &cfg.Archive.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLGATEWAY_ARCHIVE_USE_SSL", &cfg.Archive.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "SQLGATEWAY_ARCHIVE_PREFIX", &cfg.Archive.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLGATEWAY_ARCHIVE_AUTO_CREATE_BUCKET", &cfg.Archive.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "SQLGATEWAY_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "SQLGATEWAY_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	cfg.Profiles.Properties = propertiesFromEnviron(environ)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Archive.Enabled() && strings.TrimSpace(cfg.Archive.Bucket) == "" {
		return Config{}, fmt.Errorf("archive bucket is required when an archive endpoint is set")
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Service: ServiceConfig{Name: "sqlgateway"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  120 * time.Second,
		},
		Profiles: ProfilesConfig{
			PropertiesFile: "sqlgateway.properties",
		},
		Archive: ArchiveConfig{
			Region:           "us-east-1",
			Bucket:           "sqlgateway-results",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  true,
		},
	}
}

// propertiesFromEnviron turns SQLGATEWAY_PROP_<profile>__<setting>=value entries into
// dotted profile properties.
func propertiesFromEnviron(environ []string) map[string]string {
	props := make(map[string]string)
	for _, entry := range environ {
		name, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(name, EnvPropertyPrefix) {
			continue
		}
		key := strings.ReplaceAll(strings.TrimPrefix(name, EnvPropertyPrefix), "__", KeySeparator)
		if key == "" {
			continue
		}
		props[key] = value
	}
	return props
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
