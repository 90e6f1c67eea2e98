package cluster

import (
    "fmt"

    "github.com/fleetware/couchrally/pkg/memquota"
)

const (
    DefaultRestPort         = 8091
    DefaultIndexStorageMode = "default"
)

// DefaultServices is the service set used when the operator specifies none.
var DefaultServices = []memquota.Service{memquota.Data, memquota.Index, memquota.Query, memquota.Search}

// Config describes the cluster this node initializes or joins. It is built
// once at startup and immutable thereafter.
type Config struct {
    ClusterName string
    Username    string
    Password    string

    Services         []memquota.Service
    IndexStorageMode string
    RestPort         int

    // TotalMemoryMB feeds the automatic memory planner. Ignored when manual
    // quotas are given.
    TotalMemoryMB int

    // Manual per-service quotas. Either every selected quota-bearing service
    // has one, or none do and the planner computes all of them.
    DataRAMMB   int
    IndexRAMMB  int
    SearchRAMMB int

    // UsePublicHostname selects the instances' public DNS names for all
    // cluster wiring, including the rally point.
    UsePublicHostname bool
}

// Validate checks required fields and the quota mode rule. All failures wrap
// ErrValidation.
func (c Config) Validate() error {
    if c.ClusterName == "" {
        return fmt.Errorf("%w: empty cluster name", ErrValidation)
    }
    if c.Username == "" {
        return fmt.Errorf("%w: missing --cluster-username", ErrValidation)
    }
    if c.Password == "" {
        return fmt.Errorf("%w: missing --cluster-password", ErrValidation)
    }
    if len(c.Services) == 0 {
        return fmt.Errorf("%w: empty service set", ErrValidation)
    }
    switch c.IndexStorageMode {
    case "default", "memory_optimized":
    default:
        return fmt.Errorf("%w: invalid index storage mode %q", ErrValidation, c.IndexStorageMode)
    }
    if c.RestPort <= 0 || c.RestPort > 65535 {
        return fmt.Errorf("%w: invalid rest port %d", ErrValidation, c.RestPort)
    }

    selected := map[memquota.Service]bool{}
    for _, s := range c.Services {
        selected[s] = true
    }
    manual := map[memquota.Service]int{memquota.Data: c.DataRAMMB, memquota.Index: c.IndexRAMMB, memquota.Search: c.SearchRAMMB}
    var manualSet, manualMissing int
    for svc, mb := range manual {
        if mb < 0 {
            return fmt.Errorf("%w: negative quota for %s", ErrValidation, svc)
        }
        if mb > 0 && !selected[svc] {
            return fmt.Errorf("%w: quota given for unselected service %s", ErrValidation, svc)
        }
        if !selected[svc] {
            continue
        }
        if mb > 0 {
            manualSet++
        } else {
            manualMissing++
        }
    }
    // All-or-nothing: mixing manual and computed quotas is ambiguous.
    if manualSet > 0 && manualMissing > 0 {
        return fmt.Errorf("%w: partial manual quotas; give a quota for every selected service or none", ErrValidation)
    }
    if manualSet == 0 && manualMissing > 0 && c.TotalMemoryMB <= 0 {
        return fmt.Errorf("%w: automatic quotas need a positive total memory", ErrValidation)
    }
    return nil
}

// Quotas returns the per-service memory quotas to hand to the control
// plane: the manual ones when given, otherwise the planner's.
func (c Config) Quotas() (map[memquota.Service]int, error) {
    manual := map[memquota.Service]int{}
    if c.DataRAMMB > 0 { manual[memquota.Data] = c.DataRAMMB }
    if c.IndexRAMMB > 0 { manual[memquota.Index] = c.IndexRAMMB }
    if c.SearchRAMMB > 0 { manual[memquota.Search] = c.SearchRAMMB }
    if len(manual) > 0 {
        return manual, nil
    }
    return memquota.Plan(c.TotalMemoryMB, c.Services)
}
