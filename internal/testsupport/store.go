package testsupport

import (
	"testing"

	"foodlog/internal/config"
	"foodlog/internal/entrystore"
)

// MustOpenStore opens an entrystore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *entrystore.Store {
	t.Helper()

	store, err := entrystore.Open(cfg)
	if err != nil {
		t.Fatalf("entrystore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
