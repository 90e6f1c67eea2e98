package controlplane

import (
    "fmt"
)

// InitSpec carries everything the cluster-creation command needs. RAM size
// fields of zero are omitted from the command line entirely; the control
// plane treats absence as "no quota for that service".
type InitSpec struct {
    Host             string
    ClusterName      string
    Port             int
    Username         string
    Password         string
    IndexStorageMode string
    ServicesCSV      string
    RAMSizeMB        int
    IndexRAMSizeMB   int
    FTSRAMSizeMB     int
}

// AddSpec carries the add-node command inputs. NodeAddr is the joining
// node's host:port; ClusterAddr is any node already in the cluster.
type AddSpec struct {
    ClusterAddr      string
    NodeAddr         string
    Username         string
    Password         string
    IndexStorageMode string
    ServicesCSV      string
}

// The argument names below are a compatibility contract with the vendor
// tool; do not rename them.

func ServerListArgs(clusterAddr, username, password string) []string {
    return []string{
        "server-list",
        "--cluster=" + clusterAddr,
        "--username=" + username,
        "--password=" + password,
    }
}

func ClusterInitArgs(spec InitSpec) []string {
    args := []string{
        "cluster-init",
        "--cluster=" + spec.Host,
        "--cluster-name=" + spec.ClusterName,
        fmt.Sprintf("--cluster-port=%d", spec.Port),
        "--cluster-username=" + spec.Username,
        "--cluster-password=" + spec.Password,
        "--index-storage-setting=" + spec.IndexStorageMode,
        "--services=" + spec.ServicesCSV,
    }
    if spec.RAMSizeMB > 0 {
        args = append(args, fmt.Sprintf("--cluster-ramsize=%d", spec.RAMSizeMB))
    }
    if spec.IndexRAMSizeMB > 0 {
        args = append(args, fmt.Sprintf("--cluster-index-ramsize=%d", spec.IndexRAMSizeMB))
    }
    if spec.FTSRAMSizeMB > 0 {
        args = append(args, fmt.Sprintf("--cluster-fts-ramsize=%d", spec.FTSRAMSizeMB))
    }
    return args
}

func ServerAddArgs(spec AddSpec) []string {
    return []string{
        "server-add",
        "--cluster=" + spec.ClusterAddr,
        "--user=" + spec.Username,
        "--pass=" + spec.Password,
        "--server-add=" + spec.NodeAddr,
        "--server-add-username=" + spec.Username,
        "--server-add-password=" + spec.Password,
        "--index-storage-setting=" + spec.IndexStorageMode,
        "--services=" + spec.ServicesCSV,
    }
}

func RebalanceArgs(clusterAddr, username, password string) []string {
    return []string{
        "rebalance",
        "--cluster=" + clusterAddr,
        "--username=" + username,
        "--password=" + password,
        "--no-progress-bar",
    }
}
