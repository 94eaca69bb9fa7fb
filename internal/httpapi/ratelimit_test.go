// Package httpapi tests cover the login throttle.
package httpapi

import (
	"testing"
	"time"
)

// TestLoginLimiterSixthAttemptRejected mirrors the 5-per-60s policy: five
// attempts pass, the sixth is limited and not recorded.
func TestLoginLimiterSixthAttemptRejected(t *testing.T) {
	l := newLoginLimiter(5, time.Minute)
	t.Cleanup(l.Stop)

	for i := 0; i < 5; i++ {
		if l.IsLimited("1.2.3.4") {
			t.Fatalf("attempt %d unexpectedly limited", i+1)
		}
	}
	if !l.IsLimited("1.2.3.4") {
		t.Fatalf("sixth attempt must be limited")
	}
	// Another address is unaffected.
	if l.IsLimited("5.6.7.8") {
		t.Fatalf("other address must not be limited")
	}
}

// TestLoginLimiterWindowExpiry allows a new attempt once the window passed.
func TestLoginLimiterWindowExpiry(t *testing.T) {
	l := newLoginLimiter(5, time.Minute)
	t.Cleanup(l.Stop)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if l.IsLimited("1.2.3.4") {
			t.Fatalf("attempt %d unexpectedly limited", i+1)
		}
	}
	if !l.IsLimited("1.2.3.4") {
		t.Fatalf("expected limit inside the window")
	}

	now = base.Add(61 * time.Second)
	if l.IsLimited("1.2.3.4") {
		t.Fatalf("expected attempt after window expiry to pass")
	}
}

// TestLoginLimiterCleanupDropsStaleAddresses verifies the background sweep
// condition.
func TestLoginLimiterCleanupDropsStaleAddresses(t *testing.T) {
	l := newLoginLimiter(5, time.Minute)
	t.Cleanup(l.Stop)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	l.IsLimited("1.2.3.4")
	now = base.Add(2 * time.Minute)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.attempts["1.2.3.4"]; ok {
		t.Fatalf("expected stale address to be removed")
	}
}
