package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("provider unavailable")

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second)
	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
	if b.CurrentState() != StateClosed {
		t.Fatalf("expected closed, got %s", b.CurrentState())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Second)

	for range 3 {
		_ = b.Do(func() error { return errTest })
	}

	err := b.Do(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.CurrentState() != StateOpen {
		t.Fatalf("expected open, got %s", b.CurrentState())
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker
	for range 2 {
		_ = b.Do(func() error { return errTest })
	}

	// Still open
	err := b.Do(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	// Advance past timeout: half-open allows one probe
	now = now.Add(2 * time.Second)

	called := false
	err = b.Do(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error in half-open, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}
	if b.CurrentState() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", b.CurrentState())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(2, time.Second)
	b.now = func() time.Time { return now }

	for range 2 {
		_ = b.Do(func() error { return errTest })
	}
	now = now.Add(2 * time.Second)

	// Failing probe reopens the circuit immediately.
	_ = b.Do(func() error { return errTest })

	err := b.Do(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after failed probe, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second)

	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errTest })
	_ = b.Do(func() error { return errTest })

	// Only two consecutive failures since the success, so still closed.
	err := b.Do(func() error { return nil })
	if err != nil {
		t.Fatalf("expected closed circuit, got %v", err)
	}
}
