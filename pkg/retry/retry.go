package retry

import (
    "context"
    "errors"
    "fmt"
    "time"
)

// ErrExhausted is returned (wrapped) when a probe never succeeds within the
// configured attempt budget. Callers treat it as fatal.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a polling loop: at most MaxAttempts probes, with a fixed
// Interval sleep between consecutive probes. It is a configuration value,
// not mutable state.
type Policy struct {
    MaxAttempts int
    Interval    time.Duration

    // Sleep overrides the delay between attempts. If nil, the loop blocks on
    // a timer honoring ctx cancellation. Used by tests.
    Sleep func(d time.Duration)
}

// Validate reports whether the policy makes sense.
func (p Policy) Validate() error {
    if p.MaxAttempts <= 0 {
        return fmt.Errorf("retry: MaxAttempts must be positive, got %d", p.MaxAttempts)
    }
    if p.Interval < 0 {
        return fmt.Errorf("retry: negative Interval %v", p.Interval)
    }
    return nil
}

// Until polls probe at the policy's interval until it returns done=true, the
// attempt budget is exhausted, or probe returns an error. A probe error aborts
// immediately; the caller decides whether that is fatal. On exhaustion the
// returned error wraps ErrExhausted and names desc for diagnosis.
//
// A probe that succeeds on attempt k performs exactly k-1 sleeps.
func Until(ctx context.Context, p Policy, desc string, probe func(ctx context.Context) (bool, error)) error {
    if err := p.Validate(); err != nil { return err }
    for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
        done, err := probe(ctx)
        if err != nil { return err }
        if done { return nil }
        if attempt == p.MaxAttempts { break }
        if p.Sleep != nil {
            p.Sleep(p.Interval)
            continue
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(p.Interval):
        }
    }
    return fmt.Errorf("%s after %d attempts: %w", desc, p.MaxAttempts, ErrExhausted)
}
