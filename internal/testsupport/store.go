package testsupport

import (
	"testing"

	"github.com/regexyl/instantcards/internal/config"
	"github.com/regexyl/instantcards/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open jobs store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close jobs store: %v", err)
		}
	})
	return store
}
