package discovery

import (
    "context"
    "errors"
    "time"
)

// ErrNoInstances indicates the directory lookup returned no usable instances.
// A cluster bootstrap cannot make progress without a membership view, so
// callers treat this as fatal for the current invocation.
var ErrNoInstances = errors.New("discovery: no instances found")

// Instance is an immutable snapshot of one fleet member as reported by the
// membership directory. The directory itself is external and eventually
// consistent; this package only reads it.
type Instance struct {
    // ID is the stable opaque identifier of the instance (e.g. an EC2
    // instance id). Used as the tie-breaker in rally point election.
    ID string
    // LaunchTime is when the instance was started.
    LaunchTime time.Time
    // PrivateHostname is the instance's in-network DNS name or address.
    PrivateHostname string
    // PublicHostname is the instance's externally reachable DNS name, when
    // one exists. May be empty.
    PublicHostname string
}

// Hostname returns the hostname to use for cluster wiring. The public name is
// only consulted when requested and present.
func (i Instance) Hostname(public bool) string {
    if public && i.PublicHostname != "" {
        return i.PublicHostname
    }
    return i.PrivateHostname
}

// Directory abstracts the fleet membership registry. Every peer queries the
// same directory independently; no peer-to-peer coordination happens on top
// of it.
type Directory interface {
    // Instances returns the current membership snapshot. Implementations
    // must not cache entries across probe cycles longer than their own
    // refresh window; callers re-derive all decisions from each snapshot.
    Instances(ctx context.Context) ([]Instance, error)
}
