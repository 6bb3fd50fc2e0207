// Package conformance provides conformance tests for the vidshare API.
package conformance

import (
	"os"
	"testing"
)

// TestConformance runs the full conformance test suite.
// VIDSHARE_TEST_DB_DSN and VIDSHARE_TEST_NATS_URL point the harness at real
// backends; by default it runs in memory.
func TestConformance(t *testing.T) {
	harness, err := NewHarness(Config{
		DatabaseDSN: os.Getenv("VIDSHARE_TEST_DB_DSN"),
		NATSURL:     os.Getenv("VIDSHARE_TEST_NATS_URL"),
	})
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}
	defer harness.Close()

	harness.RunConformanceTests(t)
}
