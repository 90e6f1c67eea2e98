package cluster

import (
    "context"
    "errors"
    "fmt"
    "net"
    "strconv"

    "github.com/fleetware/couchrally/pkg/controlplane"
    "github.com/fleetware/couchrally/pkg/internal/logutil"
    "github.com/fleetware/couchrally/pkg/memquota"
    obsmetrics "github.com/fleetware/couchrally/pkg/observability/metrics"
    "github.com/fleetware/couchrally/pkg/observability/tracing"
    "github.com/fleetware/couchrally/pkg/retry"
)

// Orchestrator drives one node through the cluster membership protocol:
// wait for the local service, then either initialize the cluster (rally
// point only) or join it. Every operation re-checks its precondition via a
// status probe, so the whole sequence is idempotent and safe to re-run from
// scratch after a crash or restart. There is no mutual exclusion across
// peers; correctness relies on deterministic rally-point convergence and on
// operations that no-op when another peer already completed the step.
type Orchestrator struct {
    opts   Options
    prober *controlplane.Prober
}

// New constructs an Orchestrator from validated options. It performs no
// network or process activity; call Run (or the individual operations).
func New(opts Options) (*Orchestrator, error) {
    if err := opts.Validate(); err != nil {
        return nil, err
    }
    opts.applyDefaults()
    return &Orchestrator{
        opts:   opts,
        prober: controlplane.NewProber(opts.Runner, opts.Config.Username, opts.Config.Password, opts.Logger),
    }, nil
}

func (o *Orchestrator) rallyAddr() string {
    return net.JoinHostPort(o.opts.RallyHost, strconv.Itoa(o.opts.Config.RestPort))
}

func (o *Orchestrator) nodeAddr() string {
    return net.JoinHostPort(o.opts.NodeHost, strconv.Itoa(o.opts.Config.RestPort))
}

// Run executes the full protocol for this node. Execution is sequential:
// each step blocks until complete before the next begins.
func (o *Orchestrator) Run(ctx context.Context, isRallyPoint bool) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.Run")
    defer end()
    obsmetrics.Register()
    if isRallyPoint {
        obsmetrics.IsRallyPoint.Set(1)
    } else {
        obsmetrics.IsRallyPoint.Set(0)
    }
    if err := o.WaitForNode(ctx, o.nodeAddr()); err != nil {
        return err
    }
    if isRallyPoint {
        return o.AddRallyPointToCluster(ctx)
    }
    return o.JoinExistingCluster(ctx)
}

// WaitForNode polls until the node process at addr starts answering status
// queries at all. Both "initialized" and "unknown pool" answers mean the
// process is up; only a connection-level failure keeps the loop going.
func (o *Orchestrator) WaitForNode(ctx context.Context, addr string) error {
    logutil.Infof(o.opts.Logger, "waiting for node %s to respond", addr)
    return retry.Until(ctx, o.opts.NodeWait, fmt.Sprintf("node %s not responding", addr), func(ctx context.Context) (bool, error) {
        obsmetrics.RetryAttempts.WithLabelValues("node-wait").Inc()
        _, err := o.prober.Probe(ctx, addr)
        if errors.Is(err, controlplane.ErrUnavailable) {
            return false, nil
        }
        if err != nil {
            return false, err
        }
        return true, nil
    })
}

// WaitForInitialized polls the rally point until a probe reports the cluster
// initialized.
func (o *Orchestrator) WaitForInitialized(ctx context.Context) error {
    logutil.Infof(o.opts.Logger, "waiting for cluster at %s to be initialized", o.rallyAddr())
    return retry.Until(ctx, o.opts.ClusterWait, "cluster not initialized", func(ctx context.Context) (bool, error) {
        obsmetrics.RetryAttempts.WithLabelValues("cluster-wait").Inc()
        st, err := o.prober.Probe(ctx, o.rallyAddr())
        if errors.Is(err, controlplane.ErrUnavailable) {
            // The rally point may be restarting; keep polling.
            return false, nil
        }
        if err != nil {
            return false, err
        }
        return st.Initialized, nil
    })
}

// InitializeCluster issues the one-time cluster-creation command. It is the
// rally point's operation only. An already-initialized cluster is a no-op.
// Initialization is not assumed safe to repeat blindly, so a response
// without the success marker is fatal rather than retried: the next process
// restart re-checks state from scratch before trying again.
func (o *Orchestrator) InitializeCluster(ctx context.Context) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.InitializeCluster")
    defer end()
    st, err := o.probe(ctx)
    if err != nil {
        return err
    }
    if st.Initialized {
        logutil.Infof(o.opts.Logger, "cluster already initialized, skipping cluster-init")
        return nil
    }

    quotas, err := o.opts.Config.Quotas()
    if err != nil {
        return fmt.Errorf("%w: %v", ErrValidation, err)
    }
    spec := controlplane.InitSpec{
        Host:             o.opts.RallyHost,
        ClusterName:      o.opts.Config.ClusterName,
        Port:             o.opts.Config.RestPort,
        Username:         o.opts.Config.Username,
        Password:         o.opts.Config.Password,
        IndexStorageMode: o.opts.Config.IndexStorageMode,
        ServicesCSV:      memquota.Format(o.opts.Config.Services),
        RAMSizeMB:        quotas[memquota.Data],
        IndexRAMSizeMB:   quotas[memquota.Index],
        FTSRAMSizeMB:     quotas[memquota.Search],
    }
    logutil.Infof(o.opts.Logger, "initializing cluster %q at %s (services=%s)", spec.ClusterName, spec.Host, spec.ServicesCSV)
    out, verdict := o.command(ctx, controlplane.OpClusterInit, "cluster-init", controlplane.ClusterInitArgs(spec))
    if verdict != controlplane.VerdictSuccess {
        return fmt.Errorf("cluster-init failed: %s: %w", out, ErrControlPlane)
    }
    logutil.Infof(o.opts.Logger, "cluster %q initialized", spec.ClusterName)
    return nil
}

// AddNode adds this node to the cluster. A node already present in the
// membership list is a silent no-op: another incarnation of this process,
// or a previous run, already did the work.
func (o *Orchestrator) AddNode(ctx context.Context) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.AddNode")
    defer end()
    st, err := o.probe(ctx)
    if err != nil {
        return err
    }
    if _, ok := st.Node(o.nodeAddr()); ok {
        logutil.Infof(o.opts.Logger, "node %s already in cluster, skipping server-add", o.nodeAddr())
        return nil
    }

    spec := controlplane.AddSpec{
        ClusterAddr:      o.rallyAddr(),
        NodeAddr:         o.nodeAddr(),
        Username:         o.opts.Config.Username,
        Password:         o.opts.Config.Password,
        IndexStorageMode: o.opts.Config.IndexStorageMode,
        ServicesCSV:      memquota.Format(o.opts.Config.Services),
    }
    logutil.Infof(o.opts.Logger, "adding node %s to cluster via %s", spec.NodeAddr, spec.ClusterAddr)
    out, verdict := o.command(ctx, controlplane.OpServerAdd, "server-add", controlplane.ServerAddArgs(spec))
    if verdict != controlplane.VerdictSuccess {
        return fmt.Errorf("server-add %s failed: %s: %w", spec.NodeAddr, out, ErrControlPlane)
    }
    logutil.Infof(o.opts.Logger, "node %s added", spec.NodeAddr)
    return nil
}

// Rebalance moves this node from added to active membership. A node already
// active is a no-op. Two peers rebalancing concurrently is the one expected
// race: the control plane rejects the loser with a retryable marker, and
// the loop tries again after the competing peer finishes. Any other failure
// is fatal immediately.
func (o *Orchestrator) Rebalance(ctx context.Context) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.Rebalance")
    defer end()
    st, err := o.probe(ctx)
    if err != nil {
        return err
    }
    if node, ok := st.Node(o.nodeAddr()); ok && node.Active() {
        logutil.Infof(o.opts.Logger, "node %s already active, skipping rebalance", o.nodeAddr())
        return nil
    }

    err = retry.Until(ctx, o.opts.RebalanceRetry, "rebalance conflict not resolved", func(ctx context.Context) (bool, error) {
        obsmetrics.RetryAttempts.WithLabelValues("rebalance").Inc()
        out, verdict := o.command(ctx, controlplane.OpRebalance, "rebalance", controlplane.RebalanceArgs(o.rallyAddr(), o.opts.Config.Username, o.opts.Config.Password))
        switch verdict {
        case controlplane.VerdictSuccess:
            return true, nil
        case controlplane.VerdictRetryConflict:
            obsmetrics.RebalanceConflicts.Inc()
            logutil.Warnf(o.opts.Logger, "rebalance conflict (another peer rebalancing), will retry: %s", out)
            return false, nil
        default:
            return false, fmt.Errorf("rebalance failed: %s: %w", out, ErrControlPlane)
        }
    })
    if err != nil {
        if errors.Is(err, retry.ErrExhausted) {
            return fmt.Errorf("%w: %v", ErrRebalanceConflict, err)
        }
        return err
    }
    logutil.Infof(o.opts.Logger, "node %s rebalanced into active membership", o.nodeAddr())
    return nil
}

// JoinExistingCluster is the non-rally-point branch: wait until the rally
// point has initialized the cluster, then add this node and rebalance it in,
// in that strict order. Each step no-ops when already done, which makes the
// whole sequence restart-safe.
func (o *Orchestrator) JoinExistingCluster(ctx context.Context) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.JoinExistingCluster")
    defer end()
    if err := o.WaitForInitialized(ctx); err != nil {
        return err
    }
    if err := o.AddNode(ctx); err != nil {
        return err
    }
    return o.Rebalance(ctx)
}

// AddRallyPointToCluster is the rally point's branch: a probe decides
// between first-time initialization and joining a cluster some previous
// incarnation already created. In the latter case the rally point treats
// itself like any other node.
func (o *Orchestrator) AddRallyPointToCluster(ctx context.Context) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.AddRallyPointToCluster")
    defer end()
    st, err := o.probe(ctx)
    if err != nil {
        return err
    }
    if st.Initialized {
        logutil.Infof(o.opts.Logger, "cluster already initialized, joining as a regular node")
        return o.JoinExistingCluster(ctx)
    }
    return o.InitializeCluster(ctx)
}

// NodeState derives this node's current protocol state from a fresh probe.
// Used by the management status endpoint; never consulted by the protocol
// itself, which re-probes inside each operation.
func (o *Orchestrator) NodeState(ctx context.Context) (NodeState, error) {
    st, err := o.prober.Probe(ctx, o.rallyAddr())
    if errors.Is(err, controlplane.ErrUnavailable) {
        return StateUnknown, nil
    }
    if err != nil {
        return StateUnknown, err
    }
    return stateOf(st, o.nodeAddr()), nil
}

func (o *Orchestrator) probe(ctx context.Context) (controlplane.Status, error) {
    st, err := o.prober.Probe(ctx, o.rallyAddr())
    if err != nil {
        return st, err
    }
    obsmetrics.ClusterNodes.Set(float64(len(st.Nodes)))
    var active int
    for _, n := range st.Nodes {
        if n.Active() {
            active++
        }
    }
    obsmetrics.ClusterNodesActive.Set(float64(active))
    return st, nil
}

func (o *Orchestrator) command(ctx context.Context, op controlplane.Operation, name string, args []string) (string, controlplane.Verdict) {
    out, _ := o.opts.Runner.Run(ctx, args...)
    verdict := controlplane.Classify(op, out)
    obsmetrics.ControlPlaneCommands.WithLabelValues(name, verdict.String()).Inc()
    return out, verdict
}
