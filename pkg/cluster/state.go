package cluster

import "github.com/fleetware/couchrally/pkg/controlplane"

// NodeState is the per-(cluster, node) progression derived from a status
// probe. It is never cached; every decision re-derives it from the latest
// probe.
type NodeState int

const (
    StateUnknown NodeState = iota
    StateNotInitialized
    StateInitialized
    StateNodeAdded
    StateNodeActive
)

func (s NodeState) String() string {
    switch s {
    case StateNotInitialized:
        return "not-initialized"
    case StateInitialized:
        return "initialized"
    case StateNodeAdded:
        return "node-added"
    case StateNodeActive:
        return "node-active"
    default:
        return "unknown"
    }
}

// stateOf derives the node's state from one probe result.
func stateOf(st controlplane.Status, nodeAddr string) NodeState {
    if !st.Initialized {
        return StateNotInitialized
    }
    node, ok := st.Node(nodeAddr)
    if !ok {
        return StateInitialized
    }
    if node.Active() {
        return StateNodeActive
    }
    return StateNodeAdded
}
