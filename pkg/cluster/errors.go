package cluster

import "errors"

var (
    // ErrValidation marks missing required input or conflicting quota modes.
    // Fatal immediately, never retried.
    ErrValidation = errors.New("cluster: invalid configuration")
    // ErrControlPlane marks command output that matched no known success or
    // retryable marker. Treated as a compatibility break, never retried.
    ErrControlPlane = errors.New("cluster: unexpected control plane response")
    // ErrRebalanceConflict marks a concurrent rebalance collision. Retried
    // under its own bounded policy, fatal after exhaustion.
    ErrRebalanceConflict = errors.New("cluster: concurrent rebalance in progress")
)
