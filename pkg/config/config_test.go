package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(mapLookup(map[string]string{}), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "sqlgateway" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.WriteTimeout != 0 {
		t.Fatalf("HTTP.WriteTimeout = %v, want no write timeout", cfg.HTTP.WriteTimeout)
	}
	if cfg.Profiles.PropertiesFile != "sqlgateway.properties" {
		t.Fatalf("Profiles.PropertiesFile = %q", cfg.Profiles.PropertiesFile)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Archive.Enabled() {
		t.Fatal("archive should be disabled by default")
	}
	if len(cfg.Profiles.Properties) != 0 {
		t.Fatalf("Properties = %v, want empty", cfg.Profiles.Properties)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"SQLGATEWAY_HTTP_ADDR":                  ":9999",
		"SQLGATEWAY_HTTP_READ_TIMEOUT":          "2s",
		"SQLGATEWAY_HTTP_WRITE_TIMEOUT":         "5m",
		"SQLGATEWAY_PROPERTIES_FILE":            "/etc/sqlgateway/jdbc.properties",
		"SQLGATEWAY_LOG_LEVEL":                  "warn",
		"SQLGATEWAY_LOG_JSON":                   "false",
		"SQLGATEWAY_ARCHIVE_ENDPOINT":           "http://minio:9000",
		"SQLGATEWAY_ARCHIVE_BUCKET":             "results",
		"SQLGATEWAY_ARCHIVE_USE_SSL":            "true",
		"SQLGATEWAY_ARCHIVE_PREFIX":             "gateway",
		"SQLGATEWAY_ARCHIVE_ACCESS_KEY":         "minio",
		"SQLGATEWAY_ARCHIVE_SECRET_KEY":         "secret",
		"SQLGATEWAY_ARCHIVE_REGION":             "eu-west-1",
		"SQLGATEWAY_SERVICE_NAME":               "gateway-a",
		"SQLGATEWAY_HTTP_IDLE_TIMEOUT":          "10s",
		"SQLGATEWAY_ARCHIVE_AUTO_CREATE_BUCKET": "false",
	})
	cfg, err := Load(lookup, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Config{
		Service: ServiceConfig{Name: "gateway-a"},
		HTTP: HTTPConfig{
			Address:      ":9999",
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  10 * time.Second,
		},
		Profiles: ProfilesConfig{
			PropertiesFile: "/etc/sqlgateway/jdbc.properties",
			Properties:     map[string]string{},
		},
		Archive: ArchiveConfig{
			Endpoint:         "http://minio:9000",
			Region:           "eu-west-1",
			Bucket:           "results",
			AccessKeyID:      "minio",
			SecretAccessKey:  "secret",
			UseSSL:           true,
			Prefix:           "gateway",
			AutoCreateBucket: false,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelWarn,
			LogJSON:  false,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPropertiesFromEnviron(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"SQLGATEWAY_PROP_default__driver=duckdb",
		"SQLGATEWAY_PROP_default__url=",
		"SQLGATEWAY_PROP_common__max_count=50",
		"SQLGATEWAY_PROP_=ignored",
	}
	cfg, err := Load(mapLookup(map[string]string{}), environ)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{
		"default.driver":   "duckdb",
		"default.url":      "",
		"common.max_count": "50",
	}
	if diff := cmp.Diff(want, cfg.Profiles.Properties); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"BadDuration", map[string]string{"SQLGATEWAY_HTTP_READ_TIMEOUT": "soon"}},
		{"BadBool", map[string]string{"SQLGATEWAY_LOG_JSON": "maybe"}},
		{"BadLevel", map[string]string{"SQLGATEWAY_LOG_LEVEL": "loud"}},
		{"EmptyAddress", map[string]string{"SQLGATEWAY_HTTP_ADDR": " "}},
		{"ArchiveWithoutBucket", map[string]string{
			"SQLGATEWAY_ARCHIVE_ENDPOINT": "minio:9000",
			"SQLGATEWAY_ARCHIVE_BUCKET":   "",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(mapLookup(tt.values), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load(nil, nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}
