package controlplane

import (
    "context"
    "errors"
    "strings"
    "testing"
)

// scriptedRunner returns canned output per leading subcommand.
type scriptedRunner struct {
    out  string
    err  error
    seen [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, args ...string) (string, error) {
    r.seen = append(r.seen, args)
    return r.out, r.err
}

func TestProbe_ParsesListing(t *testing.T) {
    out := strings.Join([]string{
        "ns_1@10.0.0.5 10.0.0.5:8091 healthy active",
        "ns_1@10.0.0.6 10.0.0.6:8091 healthy inactiveAdded",
        "ns_1@10.0.0.7 10.0.0.7:8091 unhealthy active",
    }, "\n")
    p := NewProber(&scriptedRunner{out: out}, "admin", "secret", nil)
    st, err := p.Probe(context.Background(), "10.0.0.5:8091")
    if err != nil {
        t.Fatalf("probe: %v", err)
    }
    if !st.Initialized {
        t.Fatalf("expected initialized status")
    }
    if len(st.Nodes) != 3 {
        t.Fatalf("expected 3 nodes, got %d", len(st.Nodes))
    }

    n, ok := st.Node("10.0.0.5:8091")
    if !ok {
        t.Fatalf("node 10.0.0.5 missing")
    }
    if !n.Healthy() || !n.Active() {
        t.Fatalf("expected healthy+active, got %#v", n)
    }

    n, _ = st.Node("10.0.0.6:8091")
    if !n.Healthy() || n.Active() {
        t.Fatalf("expected healthy but not active (rebalance pending), got %#v", n)
    }

    n, _ = st.Node("10.0.0.7:8091")
    if n.Healthy() {
        t.Fatalf("expected unhealthy, got %#v", n)
    }
}

func TestProbe_UnknownPoolIsNotInitialized(t *testing.T) {
    r := &scriptedRunner{out: `ERROR: ["unknown pool"]`, err: errors.New("exit status 1")}
    p := NewProber(r, "admin", "secret", nil)
    st, err := p.Probe(context.Background(), "10.0.0.5:8091")
    if err != nil {
        t.Fatalf("unknown pool must not be an error, got %v", err)
    }
    if st.Initialized {
        t.Fatalf("expected not-initialized status")
    }
    if st.Raw == "" {
        t.Fatalf("raw error text must be preserved for diagnosis")
    }
}

func TestProbe_ConnectionFailureIsUnavailable(t *testing.T) {
    r := &scriptedRunner{out: "Unable to connect to host at http://10.0.0.5:8091", err: errors.New("exit status 1")}
    p := NewProber(r, "admin", "secret", nil)
    if _, err := p.Probe(context.Background(), "10.0.0.5:8091"); !errors.Is(err, ErrUnavailable) {
        t.Fatalf("expected ErrUnavailable, got %v", err)
    }
}

func TestProbe_IssuesServerList(t *testing.T) {
    r := &scriptedRunner{out: "ns_1@h h:8091 healthy active"}
    p := NewProber(r, "admin", "secret", nil)
    if _, err := p.Probe(context.Background(), "h:8091"); err != nil {
        t.Fatalf("probe: %v", err)
    }
    if len(r.seen) != 1 {
        t.Fatalf("expected one command, got %d", len(r.seen))
    }
    got := r.seen[0]
    want := []string{"server-list", "--cluster=h:8091", "--username=admin", "--password=secret"}
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("arg %d: got %q want %q", i, got[i], want[i])
        }
    }
}
