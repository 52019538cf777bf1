package resolver

import (
	"context"
	"testing"
)

func TestLookupFallsBackWithNoServers(t *testing.T) {
	r := &Resolver{}

	got := r.Lookup(context.Background(), "192.0.2.1")
	if got != "192.0.2.1" {
		t.Fatalf("Lookup with no configured nameservers should fall back to the literal address, got %q", got)
	}
}
