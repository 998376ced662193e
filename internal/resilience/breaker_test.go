package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker("evaluator", 3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: error = %v, want boom", i, err)
		}
	}

	state, count := b.Snapshot()
	if state != StateOpen {
		t.Errorf("state = %q, want open", state)
	}
	if count != 3 {
		t.Errorf("failureCount = %d, want 3", count)
	}

	// Rejected without invoking fn
	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("fn was called while circuit open")
	}
}

func TestBreaker_RecoveryProbe(t *testing.T) {
	b := NewBreaker("evaluator", 1, time.Minute)
	current := time.Unix(1000, 0)
	b.now = func() time.Time { return current }

	if err := b.Do(func() error { return errors.New("down") }); err == nil {
		t.Fatal("expected failure")
	}
	if state, _ := b.Snapshot(); state != StateOpen {
		t.Fatalf("state = %q, want open", state)
	}

	// Before the recovery window: still rejected
	current = current.Add(30 * time.Second)
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}

	// After the window: one probe allowed, success closes and resets
	current = current.Add(31 * time.Second)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	state, count := b.Snapshot()
	if state != StateClosed {
		t.Errorf("state = %q, want closed", state)
	}
	if count != 0 {
		t.Errorf("failureCount = %d, want 0", count)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := NewBreaker("improver", 1, time.Minute)
	current := time.Unix(1000, 0)
	b.now = func() time.Time { return current }

	b.Do(func() error { return errors.New("down") })

	current = current.Add(2 * time.Minute)
	if err := b.Do(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("expected probe failure")
	}
	if state, _ := b.Snapshot(); state != StateOpen {
		t.Errorf("state = %q, want open after failed probe", state)
	}

	// The failure timestamp was refreshed, so the window restarts
	current = current.Add(30 * time.Second)
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("evaluator", 3, time.Minute)

	b.Do(func() error { return errors.New("one") })
	b.Do(func() error { return errors.New("two") })
	b.Do(func() error { return nil })

	state, count := b.Snapshot()
	if state != StateClosed {
		t.Errorf("state = %q, want closed", state)
	}
	if count != 0 {
		t.Errorf("failureCount = %d, want 0", count)
	}
}

func TestBreakerSet_SharedInstancePerName(t *testing.T) {
	set := NewBreakerSet(5, time.Minute)

	a := set.Get("evaluator")
	b := set.Get("evaluator")
	if a != b {
		t.Error("Get returned different instances for the same name")
	}

	c := set.Get("improver")
	if a == c {
		t.Error("Get returned the same instance for different names")
	}
}
