package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, Base: time.Millisecond, Max: time.Millisecond, Factor: 2}
}

func TestDoRetriesTemporary(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Temporary(errors.New("boom"))
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("got %q after %d calls", v, calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	perm := errors.New("forbidden")
	_, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoUnwrapsLastTemporary(t *testing.T) {
	inner := errors.New("server error: 502")
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
		return 0, Temporary(inner)
	})
	if err != inner {
		t.Fatalf("expected bare inner error, got %#v", err)
	}
	if IsTemporary(err) {
		t.Error("returned error should not carry the temporary marker")
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{Attempts: 3, Base: time.Hour, Max: time.Hour}
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 0, Temporary(errors.New("later"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOnceNeverRetries(t *testing.T) {
	calls := 0
	Do(context.Background(), Once(), func(ctx context.Context) (int, error) {
		calls++
		return 0, Temporary(errors.New("x"))
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBackoffCapped(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Max: 300 * time.Millisecond, Factor: 2}
	if got := p.Backoff(1); got != 100*time.Millisecond {
		t.Errorf("Backoff(1) = %v", got)
	}
	if got := p.Backoff(5); got != 300*time.Millisecond {
		t.Errorf("Backoff(5) = %v", got)
	}
}
