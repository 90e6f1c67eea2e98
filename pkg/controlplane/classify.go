package controlplane

import "strings"

// Literal substring markers in tool output. Brittle but load-bearing: the
// control-plane tool signals outcomes through these exact strings, so they
// must be reproduced verbatim. All matching against tool output is funneled
// through Classify to keep the text contract in one place.
const (
    markerClusterInitOK   = "SUCCESS: Cluster initialized"
    markerServerAddOK     = "SUCCESS: Server added"
    markerRebalanceOK     = "SUCCESS: Rebalance complete"
    markerUnknownPool     = "unknown pool"
    markerRebalanceRetry  = "Rebalance failed. See logs for detailed reason. You can try again"
)

// Operation names the command whose output is being classified.
type Operation int

const (
    OpServerList Operation = iota
    OpClusterInit
    OpServerAdd
    OpRebalance
)

// Verdict is the tagged classification of a command response.
type Verdict int

const (
    // VerdictSuccess: the operation completed.
    VerdictSuccess Verdict = iota
    // VerdictNotInitialized: the node is up but no cluster exists there yet.
    VerdictNotInitialized
    // VerdictRetryConflict: a transient collision (concurrent rebalance);
    // retry under a bounded policy.
    VerdictRetryConflict
    // VerdictFatal: output matched no known marker; treated as a
    // compatibility break, never retried.
    VerdictFatal
)

func (v Verdict) String() string {
    switch v {
    case VerdictSuccess:
        return "success"
    case VerdictNotInitialized:
        return "not-initialized"
    case VerdictRetryConflict:
        return "retry-conflict"
    default:
        return "fatal"
    }
}

// Classify maps raw command output to a verdict for the given operation.
func Classify(op Operation, output string) Verdict {
    switch op {
    case OpServerList:
        if strings.Contains(output, markerUnknownPool) {
            return VerdictNotInitialized
        }
        return VerdictSuccess
    case OpClusterInit:
        if strings.Contains(output, markerClusterInitOK) {
            return VerdictSuccess
        }
        return VerdictFatal
    case OpServerAdd:
        if strings.Contains(output, markerServerAddOK) {
            return VerdictSuccess
        }
        return VerdictFatal
    case OpRebalance:
        if strings.Contains(output, markerRebalanceOK) {
            return VerdictSuccess
        }
        if strings.Contains(output, markerRebalanceRetry) {
            return VerdictRetryConflict
        }
        return VerdictFatal
    }
    return VerdictFatal
}
