package testsupport

import (
	"testing"

	"dubsync/internal/config"
	"dubsync/internal/store"
)

// MustOpenMemo opens the translation memo for tests and registers cleanup.
func MustOpenMemo(t testing.TB, cfg *config.Config) *store.Memo {
	t.Helper()

	memo, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		memo.Close()
	})
	return memo
}
