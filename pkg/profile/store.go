// Package profile holds the named connection profiles a query can be routed to.
package profile

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-ini/ini"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// Profile is a named set of connection parameters.
type Profile struct {
	Key      string
	Driver   string
	URL      string
	User     string
	Password string
	// Properties holds every setting of the profile, including the ones above.
	Properties map[string]string
}

// HasCredentials reports whether both user and password were configured.
func (p Profile) HasCredentials() bool {
	_, hasUser := p.Properties[config.UserKey]
	_, hasPassword := p.Properties[config.PasswordKey]
	return hasUser && hasPassword
}

// ExtraProperties returns the driver-specific settings: everything except driver and url.
func (p Profile) ExtraProperties() map[string]string {
	extra := make(map[string]string, len(p.Properties))
	for k, v := range p.Properties {
		if k == config.DriverKey || k == config.URLKey {
			continue
		}
		extra[k] = v
	}
	return extra
}

// Store resolves profiles by key. It is immutable after construction.
type Store struct {
	profiles map[string]Profile
	common   map[string]string

	maxRowsOnce sync.Once
	maxRows     int
	logger      *slog.Logger
}

// Load groups "<profileKey>.<setting>" properties into profiles. Profiles other than
// common that lack a driver or url are dropped with a warning.
func Load(props map[string]string, logger *slog.Logger) *Store {
	logger = observability.OrNop(logger)

	grouped := make(map[string]map[string]string)
	for key, value := range props {
		prefix, setting, ok := strings.Cut(key, config.KeySeparator)
		if !ok {
			logger.Debug("ignoring property without profile prefix", slog.String("key", key))
			continue
		}
		settings, exists := grouped[prefix]
		if !exists {
			settings = make(map[string]string)
			grouped[prefix] = settings
		}
		settings[setting] = value
	}

	s := &Store{
		profiles: make(map[string]Profile),
		common:   grouped[config.CommonProfileKey],
		logger:   logger,
	}
	if s.common == nil {
		s.common = map[string]string{}
	}

	for key, settings := range grouped {
		if key == config.CommonProfileKey {
			continue
		}
		_, hasDriver := settings[config.DriverKey]
		_, hasURL := settings[config.URLKey]
		if !hasDriver || !hasURL {
			logger.Warn("profile will be ignored, driver and url are mandatory",
				slog.String("profile", key),
				slog.Bool("has_driver", hasDriver),
				slog.Bool("has_url", hasURL),
			)
			continue
		}
		s.profiles[key] = Profile{
			Key:        key,
			Driver:     settings[config.DriverKey],
			URL:        settings[config.URLKey],
			User:       settings[config.UserKey],
			Password:   settings[config.PasswordKey],
			Properties: settings,
		}
		logger.Info("profile loaded",
			slog.String("profile", key),
			slog.String("driver", settings[config.DriverKey]),
		)
	}

	return s
}

// LoadFile reads a properties file and merges overrides on top of it. Keys in the
// default section are used as-is; keys inside a [section] are prefixed with the
// section name, so [reporting] url=... becomes reporting.url.
func LoadFile(path string, overrides map[string]string, logger *slog.Logger) (*Store, error) {
	props, err := ReadProperties(path)
	if err != nil {
		return nil, err
	}
	for k, v := range overrides {
		props[k] = v
	}
	return Load(props, logger), nil
}

// ReadProperties parses a properties file into dotted keys.
func ReadProperties(path string) (map[string]string, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters:  "=",
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file %q: %w", path, err)
	}

	props := make(map[string]string)
	for _, section := range file.Sections() {
		prefix := ""
		if section.Name() != ini.DefaultSection {
			prefix = section.Name() + config.KeySeparator
		}
		for _, key := range section.Keys() {
			props[prefix+key.Name()] = key.String()
		}
	}
	return props, nil
}

// Resolve returns the profile for key. The common profile is not resolvable.
func (s *Store) Resolve(key string) (Profile, error) {
	p, ok := s.profiles[key]
	if !ok {
		return Profile{}, apierror.NewProfileNotFoundError(key)
	}
	return p, nil
}

// MaxRows returns common.max_count, or DefaultMaxRows when it is absent, unparsable or
// negative. Zero means results are not capped.
func (s *Store) MaxRows() int {
	s.maxRowsOnce.Do(func() {
		s.maxRows = config.DefaultMaxRows
		raw, ok := s.common[config.MaxCountKey]
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			s.logger.Warn("invalid max row count, using default",
				slog.String("value", raw),
				slog.Int("default", config.DefaultMaxRows),
			)
			return
		}
		s.maxRows = n
	})
	return s.maxRows
}

// Keys returns the sorted keys of all connection profiles.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.profiles))
	for k := range s.profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
