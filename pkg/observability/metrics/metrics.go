package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    IsRallyPoint = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "couchrally",
        Name:      "is_rally_point",
        Help:      "1 if this instance was elected rally point, else 0",
    })

    FleetInstances = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "couchrally",
        Name:      "fleet_instances",
        Help:      "Instances reported by the last fleet directory lookup",
    })

    ClusterNodes = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "couchrally",
        Name:      "cluster_nodes",
        Help:      "Nodes reported by the last cluster status probe",
    })

    ClusterNodesActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "couchrally",
        Name:      "cluster_nodes_active",
        Help:      "Nodes in active membership per the last status probe",
    })

    ControlPlaneCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "couchrally",
        Subsystem: "controlplane",
        Name:      "commands_total",
        Help:      "Control-plane commands issued, by command and verdict",
    }, []string{"command", "verdict"})

    RetryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "couchrally",
        Name:      "retry_attempts_total",
        Help:      "Polling attempts per wait phase",
    }, []string{"phase"})

    RebalanceConflicts = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "couchrally",
        Name:      "rebalance_conflicts_total",
        Help:      "Rebalance attempts that collided with a concurrent peer",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(IsRallyPoint)
        prometheus.MustRegister(FleetInstances)
        prometheus.MustRegister(ClusterNodes)
        prometheus.MustRegister(ClusterNodesActive)
        prometheus.MustRegister(ControlPlaneCommands)
        prometheus.MustRegister(RetryAttempts)
        prometheus.MustRegister(RebalanceConflicts)
    })
}
