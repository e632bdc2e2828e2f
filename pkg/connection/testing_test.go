package connection

import (
	"testing"

	"github.com/nnnkkk7/sqlgateway/pkg/profile"
)

// newProfile builds a profile through the store so tests see the same shape as
// production code.
func newProfile(t *testing.T, key string, settings map[string]string) profile.Profile {
	t.Helper()

	props := make(map[string]string, len(settings))
	for k, v := range settings {
		props[key+"."+k] = v
	}
	p, err := profile.Load(props, nil).Resolve(key)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", key, err)
	}
	return p
}
