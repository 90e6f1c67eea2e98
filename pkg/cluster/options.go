package cluster

import (
    "fmt"
    "log"
    "time"

    "github.com/fleetware/couchrally/pkg/controlplane"
    "github.com/fleetware/couchrally/pkg/retry"
)

// Default polling policies. Node startup and cluster initialization share a
// bound class; rebalance conflicts resolve quickly once the competing peer
// finishes, so that loop is short with a longer interval.
var (
    DefaultNodeWait       = retry.Policy{MaxAttempts: 120, Interval: 5 * time.Second}
    DefaultClusterWait    = retry.Policy{MaxAttempts: 120, Interval: 5 * time.Second}
    DefaultRebalanceRetry = retry.Policy{MaxAttempts: 10, Interval: 30 * time.Second}
)

// Options assembles an Orchestrator.
type Options struct {
    // Config describes the cluster to build or join.
    Config Config

    // RallyHost is the elected rally point's hostname.
    RallyHost string
    // NodeHost is this node's hostname.
    NodeHost string

    // Runner is the control-plane command channel (required).
    Runner controlplane.Runner

    // Logger is used to report operational messages.
    Logger *log.Logger

    // Polling policies. Zero values take the defaults above.
    NodeWait       retry.Policy
    ClusterWait    retry.Policy
    RebalanceRetry retry.Policy
}

// Validate checks options and the embedded Config.
func (o Options) Validate() error {
    if err := o.Config.Validate(); err != nil {
        return err
    }
    if o.RallyHost == "" {
        return fmt.Errorf("%w: empty rally point host", ErrValidation)
    }
    if o.NodeHost == "" {
        return fmt.Errorf("%w: empty node host", ErrValidation)
    }
    if o.Runner == nil {
        return fmt.Errorf("%w: nil Runner", ErrValidation)
    }
    return nil
}

func (o *Options) applyDefaults() {
    if o.NodeWait.MaxAttempts == 0 {
        o.NodeWait = DefaultNodeWait
    }
    if o.ClusterWait.MaxAttempts == 0 {
        o.ClusterWait = DefaultClusterWait
    }
    if o.RebalanceRetry.MaxAttempts == 0 {
        o.RebalanceRetry = DefaultRebalanceRetry
    }
    if o.Logger == nil {
        o.Logger = log.Default()
    }
}
