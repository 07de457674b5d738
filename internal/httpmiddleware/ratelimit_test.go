package httpmiddleware

import (
	"testing"
	"time"
)

func TestAllowExhaustsAndRefills(t *testing.T) {
	l := NewRateLimiter(10)
	now := time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		if !l.allow("1.2.3.4", now) {
			t.Fatalf("request %d rejected inside budget", i)
		}
	}
	if l.allow("1.2.3.4", now) {
		t.Fatal("request allowed past budget")
	}
	// a different client has its own bucket
	if !l.allow("5.6.7.8", now) {
		t.Fatal("second client rejected")
	}
	// a minute later the bucket is full again
	if !l.allow("1.2.3.4", now.Add(time.Minute)) {
		t.Fatal("bucket did not refill")
	}
}
