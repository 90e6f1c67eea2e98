package retry

import (
    "context"
    "errors"
    "testing"
    "time"
)

func TestUntil_SucceedsMidway(t *testing.T) {
    var sleeps int
    p := Policy{MaxAttempts: 5, Interval: 10 * time.Millisecond, Sleep: func(time.Duration) { sleeps++ }}

    calls := 0
    err := Until(context.Background(), p, "waiting for thing", func(context.Context) (bool, error) {
        calls++
        return calls == 3, nil
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if calls != 3 {
        t.Fatalf("expected 3 probes, got %d", calls)
    }
    if sleeps != 2 {
        t.Fatalf("expected exactly 2 sleeps, got %d", sleeps)
    }
}

func TestUntil_Exhausts(t *testing.T) {
    var sleeps int
    p := Policy{MaxAttempts: 4, Interval: time.Millisecond, Sleep: func(time.Duration) { sleeps++ }}

    calls := 0
    err := Until(context.Background(), p, "waiting for thing", func(context.Context) (bool, error) {
        calls++
        return false, nil
    })
    if !errors.Is(err, ErrExhausted) {
        t.Fatalf("expected ErrExhausted, got %v", err)
    }
    if calls != 4 {
        t.Fatalf("expected exactly 4 probes, got %d", calls)
    }
    // No sleep after the final failed attempt.
    if sleeps != 3 {
        t.Fatalf("expected 3 sleeps, got %d", sleeps)
    }
}

func TestUntil_ProbeErrorAborts(t *testing.T) {
    boom := errors.New("boom")
    p := Policy{MaxAttempts: 5, Interval: time.Millisecond, Sleep: func(time.Duration) {}}

    calls := 0
    err := Until(context.Background(), p, "x", func(context.Context) (bool, error) {
        calls++
        return false, boom
    })
    if !errors.Is(err, boom) {
        t.Fatalf("expected probe error, got %v", err)
    }
    if calls != 1 {
        t.Fatalf("expected a single probe, got %d", calls)
    }
}

func TestUntil_ContextCanceled(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    p := Policy{MaxAttempts: 3, Interval: time.Hour}
    err := Until(ctx, p, "x", func(context.Context) (bool, error) { return false, nil })
    if !errors.Is(err, context.Canceled) {
        t.Fatalf("expected context.Canceled, got %v", err)
    }
}

func TestPolicy_Validate(t *testing.T) {
    if err := (Policy{MaxAttempts: 0, Interval: time.Second}).Validate(); err == nil {
        t.Fatalf("expected error for zero MaxAttempts")
    }
    if err := (Policy{MaxAttempts: 1, Interval: -time.Second}).Validate(); err == nil {
        t.Fatalf("expected error for negative Interval")
    }
    if err := (Policy{MaxAttempts: 1}).Validate(); err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
}
