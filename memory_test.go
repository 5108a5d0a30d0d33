package capgains_test

import (
	"testing"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/capgainstest"
)

func TestMemoryStore(t *testing.T) {
	capgainstest.RunStoreTests(t, func(t *testing.T) capgainstest.Ledger {
		return capgains.NewMemoryStore()
	})
}
