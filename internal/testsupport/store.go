package testsupport

import (
	"testing"

	"tonearm/internal/config"
	"tonearm/internal/metacache"
)

// MustOpenStore opens the metadata cache for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *metacache.Store {
	t.Helper()

	store, err := metacache.Open(cfg.General.CachePath, nil)
	if err != nil {
		t.Fatalf("metacache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
