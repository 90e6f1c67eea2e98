package controlplane

import (
    "context"
    "fmt"
    "log"
    "strings"

    "github.com/fleetware/couchrally/pkg/internal/logutil"
)

// Health is the per-node health field reported by server-list.
type Health string

const (
    HealthHealthy Health = "healthy"
    HealthUnknown Health = "unknown"
)

// Membership is the per-node membership field reported by server-list.
// "active" means rebalanced into traffic-serving membership; any other
// value means added but not yet active.
type Membership string

const (
    MembershipActive Membership = "active"
    MembershipAdded  Membership = "added"
)

// NodeEntry is one node's row in a status probe. Entries are derived fresh
// on every probe and never cached across calls.
type NodeEntry struct {
    OTPNode    string
    Addr       string
    Health     Health
    Membership Membership
}

// Healthy reports whether the node's health field is the healthy marker.
func (n NodeEntry) Healthy() bool { return n.Health == HealthHealthy }

// Active reports whether the node has been rebalanced into active state.
func (n NodeEntry) Active() bool { return n.Membership == MembershipActive }

// Status is the typed result of one probe: either the cluster is not
// initialized (Raw holds the error text for diagnosis), or it is and Nodes
// lists the membership in output order.
type Status struct {
    Initialized bool
    Raw         string
    Nodes       []NodeEntry
}

// Node looks up the entry for a host:port address.
func (s Status) Node(addr string) (NodeEntry, bool) {
    for _, n := range s.Nodes {
        if n.Addr == addr {
            return n, true
        }
    }
    return NodeEntry{}, false
}

// Prober issues non-destructive status queries against the control plane.
type Prober struct {
    runner   Runner
    username string
    password string
    logger   *log.Logger
}

func NewProber(runner Runner, username, password string, logger *log.Logger) *Prober {
    return &Prober{runner: runner, username: username, password: password, logger: logger}
}

// Probe runs server-list against clusterAddr and parses the response. A
// failing exit code is expected against an uninitialized cluster and is
// classified as not-initialized rather than propagated. A response that is
// neither a parseable listing nor the unknown-pool marker means the node
// process itself is unreachable; that is reported as ErrUnavailable and is
// not retried here.
func (p *Prober) Probe(ctx context.Context, clusterAddr string) (Status, error) {
    out, runErr := p.runner.Run(ctx, ServerListArgs(clusterAddr, p.username, p.password)...)
    if Classify(OpServerList, out) == VerdictNotInitialized {
        return Status{Initialized: false, Raw: out}, nil
    }
    if runErr != nil {
        logutil.Warnf(p.logger, "controlplane: server-list against %s failed: %v (output: %s)", clusterAddr, runErr, out)
        return Status{}, fmt.Errorf("probe %s: %s: %w", clusterAddr, firstLine(out), ErrUnavailable)
    }
    st := Status{Initialized: true, Raw: out}
    for _, line := range strings.Split(out, "\n") {
        fields := strings.Fields(line)
        if len(fields) < 4 {
            continue
        }
        st.Nodes = append(st.Nodes, NodeEntry{
            OTPNode:    fields[0],
            Addr:       fields[1],
            Health:     Health(fields[2]),
            Membership: parseMembership(fields[3]),
        })
    }
    return st, nil
}

func parseMembership(raw string) Membership {
    if raw == string(MembershipActive) {
        return MembershipActive
    }
    // server-list reports the rest as inactiveAdded/inactiveFailed variants.
    return MembershipAdded
}

func firstLine(s string) string {
    if i := strings.IndexByte(s, '\n'); i >= 0 {
        return s[:i]
    }
    if s == "" {
        return "no output"
    }
    return s
}
