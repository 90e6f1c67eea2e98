package rally

import (
    "sort"

    "github.com/fleetware/couchrally/pkg/discovery"
)

// Select returns the rally point for a fleet snapshot: the oldest instance by
// launch time, with the instance id as tie-break. The function is pure and
// order-independent on its input set, so every peer that sees the same fleet
// converges on the same rally point without communicating. If the current
// rally point is terminated, survivors converge on the next-oldest instance
// on their next evaluation.
//
// An empty snapshot is a lookup failure: no rally point means no progress.
func Select(instances []discovery.Instance) (discovery.Instance, error) {
    if len(instances) == 0 {
        return discovery.Instance{}, discovery.ErrNoInstances
    }
    sorted := append([]discovery.Instance(nil), instances...)
    sort.Slice(sorted, func(a, b int) bool {
        if !sorted[a].LaunchTime.Equal(sorted[b].LaunchTime) {
            return sorted[a].LaunchTime.Before(sorted[b].LaunchTime)
        }
        return sorted[a].ID < sorted[b].ID
    })
    return sorted[0], nil
}

// IsRallyPoint reports whether the instance with the given id is the rally
// point of the snapshot.
func IsRallyPoint(instances []discovery.Instance, id string) (bool, error) {
    rp, err := Select(instances)
    if err != nil {
        return false, err
    }
    return rp.ID == id, nil
}
