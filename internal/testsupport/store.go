package testsupport

import (
	"testing"

	"sarchain/internal/config"
	"sarchain/internal/ledger"
)

// MustOpenLedger opens the ledger at cfg.LedgerPath for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
