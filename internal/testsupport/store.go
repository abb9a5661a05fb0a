package testsupport

import (
	"context"
	"testing"

	"tagbench/internal/completioncache"
	"tagbench/internal/config"
)

// MustOpenCache opens the completion cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *completioncache.Store {
	t.Helper()

	store, err := completioncache.Open(context.Background(), cfg.Cache.Path)
	if err != nil {
		t.Fatalf("completioncache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
