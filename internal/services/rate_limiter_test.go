package services

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(clock *fakeClock) *RateLimiter {
	l := NewRateLimiter(0, 0)
	l.now = clock.Now
	return l
}

func TestRateLimiterLimitsAfterMaxAttempts(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(clock)

	for i := 0; i < DefaultRateLimitMaxAttempts; i++ {
		if st := l.Check("a@b.fr"); st.Limited {
			t.Fatalf("limited after %d attempts", i)
		}
		l.RecordAttempt("a@b.fr")
	}

	st := l.Check("a@b.fr")
	if !st.Limited {
		t.Fatal("expected limited after 5 attempts")
	}
	if st.MinutesRemaining != 15 {
		t.Errorf("MinutesRemaining = %d, want 15", st.MinutesRemaining)
	}

	if other := l.Check("other@b.fr"); other.Limited {
		t.Error("limits must be per identifier")
	}

	l.Reset("a@b.fr")
	if st := l.Check("a@b.fr"); st.Limited {
		t.Error("expected not limited after reset")
	}
}

func TestRateLimiterMinutesRoundUp(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(clock)

	for i := 0; i < DefaultRateLimitMaxAttempts; i++ {
		l.RecordAttempt("id")
	}
	clock.Advance(10*time.Minute + 30*time.Second)

	st := l.Check("id")
	if !st.Limited {
		t.Fatal("expected limited inside the window")
	}
	if st.MinutesRemaining != 5 {
		t.Errorf("MinutesRemaining = %d, want 5 (4m30s rounded up)", st.MinutesRemaining)
	}
}

func TestRateLimiterWindowExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(clock)

	for i := 0; i < DefaultRateLimitMaxAttempts; i++ {
		l.RecordAttempt("id")
	}

	// exactly at the window boundary the window still holds
	clock.Advance(DefaultRateLimitWindow)
	if st := l.Check("id"); !st.Limited {
		t.Error("expected limited at the window boundary")
	}

	clock.Advance(time.Second)
	if st := l.Check("id"); st.Limited {
		t.Error("expected window to have expired")
	}

	// a new attempt starts a fresh window with count 1
	l.RecordAttempt("id")
	for i := 1; i < DefaultRateLimitMaxAttempts-1; i++ {
		l.RecordAttempt("id")
	}
	if st := l.Check("id"); st.Limited {
		t.Error("expected 4 attempts in a fresh window to be allowed")
	}
}

func TestRateLimiterRecordAfterExpiryRestartsWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}
	l := newTestLimiter(clock)

	for i := 0; i < 4; i++ {
		l.RecordAttempt("id")
	}
	clock.Advance(16 * time.Minute)
	l.RecordAttempt("id")

	if st := l.Check("id"); st.Limited {
		t.Error("old attempts should not count in the new window")
	}
}
